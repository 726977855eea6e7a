package models

// Record 各存储域记录的公共只读视图
// 服务层的统计和路径解析等跨域逻辑依赖该接口
type Record interface {
	RecordID() int64
	RecordFilename() string
	RecordCollection() string
	RecordFileSize() int64
	SetFullPath(p string)
}

// Stats 单个存储域的基础统计信息
type Stats struct {
	TotalFiles      int      `json:"total_files"`
	TotalSize       int64    `json:"total_size"`
	Collections     int      `json:"collections"`
	CollectionNames []string `json:"collection_names"`
}

// ImageStats 图片域统计信息（含格式/类型/尺寸直方图）
type ImageStats struct {
	Stats
	Formats map[string]int `json:"formats"`
	Types   map[string]int `json:"types"`
	Sizes   map[string]int `json:"sizes"` // small / medium / large
}

// FlashcardStats 闪卡域统计信息（含编码/分隔符直方图）
type FlashcardStats struct {
	Stats
	TotalFlashcards int            `json:"total_flashcards"`
	Encodings       map[string]int `json:"encodings"`
	Delimiters      map[string]int `json:"delimiters"`
	AvgRowsPerFile  float64        `json:"avg_rows_per_file"`
}

// ControllerStats 全部存储域的聚合统计
type ControllerStats struct {
	Images     *ImageStats     `json:"images"`
	Flashcards *FlashcardStats `json:"flashcards"`
	TotalFiles int             `json:"total_files"`
	TotalSize  int64           `json:"total_size"`
}
