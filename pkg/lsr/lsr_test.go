package lsr_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mythos-rpg/mythos/pkg/lsr"
)

var _ = Describe("ParseDefinitions", func() {
	It("parses a single definition line", func() {
		defs := lsr.ParseDefinitions("#1 Char|0:Name|1:Gender")

		Expect(defs).To(HaveLen(1))
		Expect(defs[0].ID).To(Equal("1"))
		Expect(defs[0].Name).To(Equal("Char"))
		Expect(defs[0].Columns).To(Equal([]string{"Name", "Gender"}))
	})

	It("uses the raw token when a column has no index prefix", func() {
		defs := lsr.ParseDefinitions("#3 Tasks|Summary|1:Owner")

		Expect(defs[0].Columns).To(Equal([]string{"Summary", "Owner"}))
	})

	It("keeps colons inside column names after the first separator", func() {
		defs := lsr.ParseDefinitions("#2 Times|0:First (Y/N:details)")

		Expect(defs[0].Columns).To(Equal([]string{"First (Y/N:details)"}))
	})

	It("ignores lines that do not match the grammar", func() {
		block := "## heading\nprose here\n#7 Places|0:Name\nmore prose"
		defs := lsr.ParseDefinitions(block)

		Expect(defs).To(HaveLen(1))
		Expect(defs[0].ID).To(Equal("7"))
	})

	It("parses the full default schema block", func() {
		defs := lsr.ParseDefinitions(defaultSchemaBlock)

		Expect(defs).To(HaveLen(10))
		Expect(defs[0].ID).To(Equal("0"))
		Expect(defs[9].ID).To(Equal("9"))
		Expect(defs[9].Columns).To(HaveLen(3))
	})
})

var _ = Describe("ParseRuntime", func() {
	It("parses a table line into an indexed row", func() {
		tables := lsr.ParseRuntime("#1 Char|0:Anna|1:F")

		Expect(tables).To(Equal(lsr.Tables{
			"1": {{"0": "Anna", "1": "F"}},
		}))
	})

	It("appends rows for repeated table ids in encounter order", func() {
		raw := "#5 Items|0:Sword|1:Anna\n#5 Items|0:Map|1:Bren"
		tables := lsr.ParseRuntime(raw)

		Expect(tables["5"]).To(HaveLen(2))
		Expect(tables["5"][0]["0"]).To(Equal("Sword"))
		Expect(tables["5"][1]["0"]).To(Equal("Map"))
	})

	It("keeps colons inside cell values", func() {
		tables := lsr.ParseRuntime("#9 Events|0:Day 1: dawn|1:Forest")

		Expect(tables["9"][0]["0"]).To(Equal("Day 1: dawn"))
	})

	It("drops cells without an index separator", func() {
		tables := lsr.ParseRuntime("#1 Char|bare|1:F")

		Expect(tables["1"][0]).To(Equal(lsr.Row{"1": "F"}))
	})

	It("ignores prose between table lines", func() {
		raw := "The story continues.\n#1 Char|0:Anna\nShe walks away."
		tables := lsr.ParseRuntime(raw)

		Expect(tables).To(HaveLen(1))
	})
})

var _ = Describe("Serialize", func() {
	It("round-trips runtime data through parse and serialize", func() {
		raw := "#1 Char|0:Anna|1:F\n#9 Events|0:Day 1|1:Forest|2:Arrived"
		defs := []lsr.TableDefinition{
			{ID: "1", Name: "Char", Columns: []string{"Name", "Gender"}},
			{ID: "9", Name: "Events", Columns: []string{"Time", "Location", "Event"}},
		}

		tables := lsr.ParseRuntime(raw)
		serialized := lsr.Serialize(tables, defs)
		reparsed := lsr.ParseRuntime(serialized)

		Expect(reparsed).To(Equal(tables))
	})

	It("orders cells by numeric column index", func() {
		tables := lsr.Tables{"1": {{"10": "j", "2": "b", "0": "a"}}}
		out := lsr.Serialize(tables, nil)

		Expect(out).To(Equal("#1 Bảng 1|0:a|2:b|10:j"))
	})
})

var _ = Describe("ApplyStateUpdate", func() {
	It("maps event history and derives the current-info table", func() {
		payload := `{"event_history":[{"Time":"Day 1","Location":"Forest","Event_Description":"Arrived"}]}`

		next, err := lsr.ApplyStateUpdate(payload, lsr.Tables{})
		Expect(err).NotTo(HaveOccurred())

		Expect(next["9"]).To(HaveLen(1))
		Expect(next["9"][0]).To(Equal(lsr.Row{"0": "Day 1", "1": "Forest", "2": "Arrived"}))
		Expect(next["0"]).To(Equal([]lsr.Row{{"0": "Day 1", "1": "Forest"}}))
	})

	It("derives the current-info table from the latest event", func() {
		payload := `{"event_history":[
			{"Time":"Day 1","Location":"Forest","Event_Description":"Arrived"},
			{"Time":"Day 2","Location":"Village","Event_Description":"Rested"}
		]}`

		next, err := lsr.ApplyStateUpdate(payload, lsr.Tables{})
		Expect(err).NotTo(HaveOccurred())
		Expect(next["0"]).To(Equal([]lsr.Row{{"0": "Day 2", "1": "Village"}}))
	})

	It("defaults missing fields to the placeholder", func() {
		payload := `{"character_info":[{"Name":"Anna"}]}`

		next, err := lsr.ApplyStateUpdate(payload, lsr.Tables{})
		Expect(err).NotTo(HaveOccurred())

		row := next["1"][0]
		Expect(row["0"]).To(Equal("Anna"))
		Expect(row["1"]).To(Equal(lsr.Placeholder))
		Expect(row).To(HaveLen(14))
	})

	It("replaces a table wholesale and retains absent tables", func() {
		current := lsr.Tables{
			"5": {{"0": "Sword"}},
			"7": {{"0": "Forest"}},
		}
		payload := `{"inventory":[{"Item_Name":"Map"}]}`

		next, err := lsr.ApplyStateUpdate(payload, current)
		Expect(err).NotTo(HaveOccurred())

		Expect(next["5"]).To(HaveLen(1))
		Expect(next["5"][0]["0"]).To(Equal("Map"))
		Expect(next["7"]).To(Equal(current["7"]))
	})

	It("skips the major summary when its content is empty", func() {
		current := lsr.Tables{"8": {{"0": "Day 1-10", "1": "The first arc"}}}

		for _, payload := range []string{
			`{"major_summary":{"Time_Range":"Day 11-20","Content":""}}`,
			`{"major_summary":{"Time_Range":"Day 11-20","Content":"null"}}`,
			`{"major_summary":{"Time_Range":"Day 11-20"}}`,
		} {
			next, err := lsr.ApplyStateUpdate(payload, current)
			Expect(err).NotTo(HaveOccurred())
			Expect(next["8"]).To(Equal(current["8"]))
		}
	})

	It("overwrites the major summary when content is present", func() {
		payload := `{"major_summary":{"Time_Range":"Day 11-20","Content":"The second arc"}}`

		next, err := lsr.ApplyStateUpdate(payload, lsr.Tables{})
		Expect(err).NotTo(HaveOccurred())
		Expect(next["8"]).To(Equal([]lsr.Row{{"0": "Day 11-20", "1": "The second arc"}}))
	})

	It("returns the input state unchanged on malformed JSON", func() {
		current := lsr.Tables{"1": {{"0": "Anna"}}}

		next, err := lsr.ApplyStateUpdate("{not json", current)
		Expect(err).To(MatchError(lsr.ErrCodec))
		Expect(next).To(Equal(current))
	})

	It("does not mutate the input state", func() {
		current := lsr.Tables{"5": {{"0": "Sword"}}}
		payload := `{"inventory":[{"Item_Name":"Map"}]}`

		_, err := lsr.ApplyStateUpdate(payload, current)
		Expect(err).NotTo(HaveOccurred())
		Expect(current["5"][0]["0"]).To(Equal("Sword"))
	})
})

var _ = Describe("Merge", func() {
	It("replaces present tables and keeps absent ones", func() {
		current := lsr.Tables{
			"1": {{"0": "Anna"}},
			"5": {{"0": "Sword"}},
		}
		update := lsr.Tables{"1": {{"0": "Bren"}}}

		next := lsr.Merge(current, update)

		Expect(next["1"][0]["0"]).To(Equal("Bren"))
		Expect(next["5"]).To(Equal(current["5"]))
	})

	It("derives table 0 from the last row of table 9", func() {
		update := lsr.Tables{"9": {
			{"0": "Day 1", "1": "Forest", "2": "Arrived"},
			{"0": "Day 2", "1": "Village", "2": "Rested"},
		}}

		next := lsr.Merge(lsr.Tables{}, update)

		Expect(next["0"]).To(Equal([]lsr.Row{{"0": "Day 2", "1": "Village"}}))
	})

	It("ignores direct updates to table 0", func() {
		current := lsr.Tables{"0": {{"0": "Day 1", "1": "Forest"}}}
		update := lsr.Tables{"0": {{"0": "Never", "1": "Nowhere"}}}

		next := lsr.Merge(current, update)

		Expect(next["0"]).To(Equal(current["0"]))
	})

	It("guards table 8 against empty content", func() {
		current := lsr.Tables{"8": {{"0": "Day 1-10", "1": "The first arc"}}}
		update := lsr.Tables{"8": {{"0": "Day 11-20", "1": " "}}}

		next := lsr.Merge(current, update)

		Expect(next["8"]).To(Equal(current["8"]))
	})
})

const defaultSchemaBlock = `#0 Thông tin Hiện tại|0:Thời gian|1:Địa điểm
#1 Thông tin Nhân vật|0:Tên nhân vật|1:Giới tính|2:Tuổi|3:Thân phận|4:Đặc điểm cơ thể|5:Phong cách thời trang|6:Tính cách|7:Sở thích|8:Mục tiêu dài hạn|9:Mối quan hệ|10:Thái độ với người chơi|11:Quan hệ giữa các nhân vật|12:Vai trò bối cảnh|13:Ghi chú quan trọng
#2 Quan hệ Thân thiết|0:Tên nhân vật|1:Mức tin tưởng|2:Lần đầu gặp|3:Thiện cảm|4:Kỷ niệm chung|5:Tương tác gần đây|6:Ghi chú
#3 Lịch trình|0:Tóm tắt|1:Nội dung tổng thể|2:Tiến độ hiện tại|3:Người thực hiện|4:Người ủy thác|5:Phần thưởng|6:Địa điểm|7:Thời gian bắt đầu|8:Thời gian kết thúc|9:Ghi chú
#4 Năng lực|0:Tên năng lực|1:Người sở hữu|2:Cách dùng|3:Hạn chế|4:Ghi chú
#5 Kho đồ|0:Tên vật phẩm|1:Người sở hữu|2:Vị trí hiện tại|3:Số lượng|4:Hình thái|5:Công dụng|6:Hạn chế|7:Ghi chú
#6 Tổ chức|0:Tên tổ chức|1:Cấu trúc thành viên|2:Đặc điểm thành viên|3:Mục đích|4:Ghi chú
#7 Địa điểm|0:Tên địa điểm|1:Vị trí|2:Cấu trúc không gian|3:Ghi chú
#8 Tổng kết Lớn|0:Phạm vi thời gian|1:Nội dung
#9 Lịch sử Sự kiện|0:Thời gian|1:Địa điểm|2:Diễn biến sự kiện`
