package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mythos-rpg/mythos/pkg/dotdir"
)

var _ = Describe("dotdir.Manager resume", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadResumeState", func() {
		It("returns nil when no resume file exists", func() {
			state, err := m.LoadResumeState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("loads a valid resume state", func() {
			data := `{"saveId":"manual-1700000000000","worldName":"Aetheria"}`
			err := os.WriteFile(filepath.Join(tmpDir, "resume.json"), []byte(data), 0o644)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadResumeState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).NotTo(BeNil())
			Expect(state.SaveID).To(Equal("manual-1700000000000"))
			Expect(state.WorldName).To(Equal("Aetheria"))
		})

		It("returns error for invalid JSON", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "resume.json"), []byte("not json"), 0o644)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadResumeState(tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(state).To(BeNil())
		})
	})

	Describe("SaveResume", func() {
		It("persists resume state to disk", func() {
			state := &dotdir.ResumeState{
				SaveID:    "manual-42",
				WorldName: "Thành phố Sương Mù",
			}

			err := m.SaveResume(state, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = os.Stat(filepath.Join(tmpDir, "resume.json"))
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadResumeState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(state))
		})

		It("returns error for nil state", func() {
			err := m.SaveResume(nil, tmpDir)
			Expect(err).To(HaveOccurred())
		})

		It("overwrites existing resume state", func() {
			first := &dotdir.ResumeState{SaveID: "first"}
			second := &dotdir.ResumeState{SaveID: "second"}

			Expect(m.SaveResume(first, tmpDir)).To(Succeed())
			Expect(m.SaveResume(second, tmpDir)).To(Succeed())

			loaded, err := m.LoadResumeState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.SaveID).To(Equal("second"))
		})
	})

	Describe("ClearResume", func() {
		It("removes the resume file", func() {
			state := &dotdir.ResumeState{SaveID: "to-clear"}
			Expect(m.SaveResume(state, tmpDir)).To(Succeed())

			Expect(m.ClearResume(tmpDir)).To(Succeed())

			loaded, err := m.LoadResumeState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("succeeds when no resume file exists", func() {
			Expect(m.ClearResume(tmpDir)).To(Succeed())
		})
	})
})
