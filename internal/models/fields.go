package models

import (
	"encoding/json"

	"github.com/spf13/cast"
	"gorm.io/datatypes"
)

// 各存储域声明的可写字段集合
// id、hash、created_at 不在集合内，调用方永远无法覆盖它们
var imageFields = map[string]struct{}{
	"filename":        {},
	"original_name":   {},
	"file_path":       {},
	"collection":      {},
	"image_type":      {},
	"region_index":    {},
	"parent_image_id": {},
	"mask_image_id":   {},
	"file_size":       {},
	"width":           {},
	"height":          {},
	"format":          {},
	"thumbnail_path":  {},
}

var flashcardFields = map[string]struct{}{
	"filename":      {},
	"original_name": {},
	"file_path":     {},
	"collection":    {},
	"columns":       {},
	"row_count":     {},
	"file_size":     {},
	"encoding":      {},
	"delimiter":     {},
}

// FilterImageFields 过滤出图片域架构内的字段，未声明的键被静默丢弃
func FilterImageFields(fields map[string]any) map[string]any {
	return filterFields(imageFields, fields)
}

// FilterFlashcardFields 过滤出闪卡域架构内的字段，未声明的键被静默丢弃
func FilterFlashcardFields(fields map[string]any) map[string]any {
	return filterFields(flashcardFields, fields)
}

func filterFields(allowed map[string]struct{}, fields map[string]any) map[string]any {
	valid := make(map[string]any, len(fields))
	for key, value := range fields {
		if _, ok := allowed[key]; !ok {
			continue
		}
		if key == "columns" {
			if data, ok := columnsJSON(value); ok {
				valid[key] = data
			}
			continue
		}
		valid[key] = value
	}
	return valid
}

// columnsJSON 将列名列表序列化为JSON列值
// 接受字符串切片或已经序列化好的JSON文本
func columnsJSON(value any) (datatypes.JSON, bool) {
	switch v := value.(type) {
	case datatypes.JSON:
		return v, true
	case []byte:
		return datatypes.JSON(v), true
	case string:
		return datatypes.JSON(v), true
	case []string:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return datatypes.JSON(data), true
	case []any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return datatypes.JSON(data), true
	default:
		return nil, false
	}
}

// ApplyImageFields 将架构内的字段写入图片记录，既有值被调用方提供的值覆盖
// 类型不兼容的值被静默丢弃
func ApplyImageFields(img *Image, fields map[string]any) {
	for key, value := range FilterImageFields(fields) {
		switch key {
		case "filename":
			if v, err := cast.ToStringE(value); err == nil {
				img.Filename = v
			}
		case "original_name":
			if v, err := cast.ToStringE(value); err == nil {
				img.OriginalName = v
			}
		case "file_path":
			if v, err := cast.ToStringE(value); err == nil {
				img.FilePath = v
			}
		case "collection":
			if v, err := cast.ToStringE(value); err == nil {
				img.Collection = v
			}
		case "image_type":
			if v, err := cast.ToStringE(value); err == nil {
				img.ImageType = v
			}
		case "region_index":
			if v, err := cast.ToIntE(value); err == nil {
				img.RegionIndex = &v
			}
		case "parent_image_id":
			if v, err := cast.ToInt64E(value); err == nil {
				img.ParentImageID = &v
			}
		case "mask_image_id":
			if v, err := cast.ToStringE(value); err == nil {
				img.MaskImageID = v
			}
		case "file_size":
			if v, err := cast.ToInt64E(value); err == nil {
				img.FileSize = v
			}
		case "width":
			if v, err := cast.ToIntE(value); err == nil {
				img.Width = &v
			}
		case "height":
			if v, err := cast.ToIntE(value); err == nil {
				img.Height = &v
			}
		case "format":
			if v, err := cast.ToStringE(value); err == nil {
				img.Format = &v
			}
		case "thumbnail_path":
			if v, err := cast.ToStringE(value); err == nil {
				img.ThumbnailPath = v
			}
		}
	}
}

// ApplyFlashcardFields 将架构内的字段写入闪卡记录，既有值被调用方提供的值覆盖
func ApplyFlashcardFields(card *Flashcard, fields map[string]any) {
	for key, value := range FilterFlashcardFields(fields) {
		switch key {
		case "filename":
			if v, err := cast.ToStringE(value); err == nil {
				card.Filename = v
			}
		case "original_name":
			if v, err := cast.ToStringE(value); err == nil {
				card.OriginalName = v
			}
		case "file_path":
			if v, err := cast.ToStringE(value); err == nil {
				card.FilePath = v
			}
		case "collection":
			if v, err := cast.ToStringE(value); err == nil {
				card.Collection = v
			}
		case "columns":
			if v, ok := value.(datatypes.JSON); ok {
				card.Columns = v
			}
		case "row_count":
			if v, err := cast.ToIntE(value); err == nil {
				card.RowCount = &v
			}
		case "file_size":
			if v, err := cast.ToInt64E(value); err == nil {
				card.FileSize = v
			}
		case "encoding":
			if v, err := cast.ToStringE(value); err == nil {
				card.Encoding = v
			}
		case "delimiter":
			if v, err := cast.ToStringE(value); err == nil {
				card.Delimiter = v
			}
		}
	}
}
