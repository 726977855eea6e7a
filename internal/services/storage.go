// Package services 对外提供各存储域的保存、查询、删除与统计能力
// 以及自举所有域的 StorageController
package services

import (
	"sort"

	"github.com/kanae-lab/cardvault/internal/models"
)

// Storage 控制器视角下单个存储域的公共能力
type Storage interface {
	// Collections 返回出现过的集合标签（去重排序）
	Collections() ([]string, error)
	// Close 释放底层元数据库句柄
	Close() error
}

// collectionNames 统计记录中出现的集合标签（去重后排序）
func collectionNames[T models.Record](records []T) []string {
	set := make(map[string]struct{})
	for _, record := range records {
		if name := record.RecordCollection(); name != "" {
			set[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// baseStats 汇总记录数、总大小和集合信息
func baseStats[T models.Record](records []T) models.Stats {
	var totalSize int64
	for _, record := range records {
		totalSize += record.RecordFileSize()
	}
	names := collectionNames(records)
	return models.Stats{
		TotalFiles:      len(records),
		TotalSize:       totalSize,
		Collections:     len(names),
		CollectionNames: names,
	}
}
