package models

import "errors"

var (
	// ErrDuplicateContent 内容哈希已存在（重复文件）
	// Save 在返回该错误的同时返回已存在记录的ID
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrSourceUnavailable 源文件不存在或不可读
	ErrSourceUnavailable = errors.New("source file unavailable")

	// ErrRecordNotFound 记录不存在错误
	ErrRecordNotFound = errors.New("record not found")

	// ErrPersistenceConflict 元数据写入违反唯一约束（哈希竞争的兜底路径）
	ErrPersistenceConflict = errors.New("metadata persistence conflict")

	// ErrUnsupportedDomain 未注册的存储域名称
	ErrUnsupportedDomain = errors.New("unsupported storage domain")

	// ErrInvalidBasePath 基础目录无效（必须是已存在的绝对路径目录）
	ErrInvalidBasePath = errors.New("invalid base path")
)
