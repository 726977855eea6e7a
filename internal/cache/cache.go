// Package cache 为存储域提供记录读取缓存
// 服务层把按ID读取的记录序列化后缓存，并在更新和删除时失效对应键
package cache

import (
	"time"
)

// Cache 缓存接口
type Cache interface {
	Get(key string) (value string, found bool, err error)
	Set(key string, value string, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Factory 缓存工厂函数类型
type Factory func(config Config) (Cache, error)

// 注册的缓存实现
var registry = make(map[string]Factory)

// Register 注册缓存实现
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New 按配置创建缓存实例，未知类型时退回内存缓存
func New(config Config) (Cache, error) {
	if factory, ok := registry[config.Type]; ok {
		return factory(config)
	}
	return NewMemoryCache(config)
}

// Config 缓存配置
type Config struct {
	// 缓存类型: "memory", "redis"
	Type string
	// Redis连接地址（仅Redis缓存使用）
	RedisAddr string
	// Redis密码（仅Redis缓存使用）
	RedisPassword string
	// Redis数据库编号（仅Redis缓存使用）
	RedisDB int
	// 默认缓存过期时间
	DefaultTTL time.Duration
	// 自动清理间隔时间（仅内存缓存使用）
	CleanupInterval time.Duration
}

// DefaultConfig 返回默认缓存配置
// 记录缓存的TTL不必太长，落库数据才是权威来源
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		DefaultTTL:      time.Minute * 30,
		CleanupInterval: time.Minute * 5,
	}
}

// Key 生成标准化的缓存键，例如 Key("image", "id", "42") -> "image:id:42"
func Key(domain string, parts ...string) string {
	key := domain
	for _, part := range parts {
		key += ":" + part
	}
	return key
}
