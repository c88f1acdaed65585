package storage

// NotFoundError is returned when a record doesn't exist in the store.
type NotFoundError struct {
	Collection string
	Key        string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return "record not found"
	}

	return "record not found: " + e.Collection + "/" + e.Key
}
