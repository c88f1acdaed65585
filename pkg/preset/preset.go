// Package preset holds the prompt preset: the toggleable instruction modules
// injected into the system prompt, including the world-state table schema.
package preset

// PrefillModuleID names the module whose content is prepended to the model
// reply as an assistant prefill instead of being rendered into the system
// prompt.
const PrefillModuleID = "sys_prefill_trigger"

// SchemaBlock is the LSR table schema in definition form. It doubles as the
// source for lsr.ParseDefinitions and as prompt text telling the model which
// tables exist and what their columns mean.
const SchemaBlock = `#0 Thông tin Hiện tại|0:Thời gian|1:Địa điểm
#1 Thông tin Nhân vật|0:Tên nhân vật|1:Giới tính|2:Tuổi|3:Thân phận|4:Đặc điểm cơ thể|5:Phong cách thời trang|6:Tính cách|7:Sở thích|8:Mục tiêu dài hạn|9:Mối quan hệ|10:Thái độ với người chơi|11:Quan hệ giữa các nhân vật|12:Vai trò bối cảnh|13:Ghi chú quan trọng
#2 Quan hệ Thân thiết|0:Tên nhân vật|1:Mức tin tưởng|2:Lần đầu gặp|3:Thiện cảm|4:Kỷ niệm chung|5:Tương tác gần đây|6:Ghi chú
#3 Lịch trình|0:Tóm tắt|1:Nội dung tổng thể|2:Tiến độ hiện tại|3:Người thực hiện|4:Người ủy thác|5:Phần thưởng|6:Địa điểm|7:Thời gian bắt đầu|8:Thời gian kết thúc|9:Ghi chú
#4 Năng lực|0:Tên năng lực|1:Người sở hữu|2:Cách dùng|3:Hạn chế|4:Ghi chú
#5 Kho đồ|0:Tên vật phẩm|1:Người sở hữu|2:Vị trí hiện tại|3:Số lượng|4:Hình thái|5:Công dụng|6:Hạn chế|7:Ghi chú
#6 Tổ chức|0:Tên tổ chức|1:Cấu trúc thành viên|2:Đặc điểm thành viên|3:Mục đích|4:Ghi chú
#7 Địa điểm|0:Tên địa điểm|1:Vị trí|2:Cấu trúc không gian|3:Ghi chú
#8 Tổng kết Lớn|0:Phạm vi thời gian|1:Nội dung
#9 Lịch sử Sự kiện|0:Thời gian|1:Địa điểm|2:Diễn biến sự kiện`

// Module is one instruction block of the preset.
type Module struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	IsActive bool   `json:"isActive"`
}

// Config is a full preset. Module mutation is replace-whole-list: editors
// hand back a complete module slice rather than patching in place.
type Config struct {
	Modules []Module `json:"modules"`
}

// ReplaceModules swaps the module list wholesale.
func (c *Config) ReplaceModules(modules []Module) {
	c.Modules = append([]Module(nil), modules...)
}

// ActiveModules returns the active modules in declaration order, excluding
// the prefill module, which is delivered as an assistant message instead.
func (c Config) ActiveModules() []Module {
	var active []Module
	for _, m := range c.Modules {
		if m.IsActive && m.ID != PrefillModuleID {
			active = append(active, m)
		}
	}
	return active
}

// Prefill returns the assistant prefill text, empty when the prefill module
// is absent or inactive.
func (c Config) Prefill() string {
	for _, m := range c.Modules {
		if m.ID == PrefillModuleID && m.IsActive {
			return m.Content
		}
	}
	return ""
}

// Default returns the built-in preset.
func Default() Config {
	return Config{
		Modules: []Module{
			{
				ID:       "sys_narrator",
				Name:     "Người dẫn truyện",
				Content:  "Bạn là người dẫn truyện của một thế giới tương tác. Kể tiếp câu chuyện dựa trên hành động của người chơi, giữ giọng văn nhất quán và tôn trọng luật lệ của thế giới.",
				IsActive: true,
			},
			{
				ID:   "sys_table_guide",
				Name: "Hướng dẫn bảng trí nhớ",
				Content: "<memory_table_guide>\nBảng trí nhớ lưu trong <table_stored> chứa dữ liệu thế giới mà phản hồi của bạn cần dựa vào.\n<table_format>\n" +
					SchemaBlock +
					"\n</table_format>\nSau mỗi lượt, cập nhật bảng bằng khối <state_update> dạng JSON.\n</memory_table_guide>",
				IsActive: true,
			},
			{
				ID:       "sys_branches",
				Name:     "Lựa chọn rẽ nhánh",
				Content:  "Kết thúc mỗi lượt bằng khối <branches> chứa 3 lựa chọn hành động, mỗi lựa chọn một dòng.",
				IsActive: true,
			},
			{
				ID:       PrefillModuleID,
				Name:     "Kích hoạt prefill",
				Content:  "<thinking>",
				IsActive: false,
			},
		},
	}
}
