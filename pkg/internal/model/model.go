// Package model 定义持久化到关系型数据库的模型.
package model

// All 返回需要自动迁移的全部模型.
func All() []any {
	return []any{&Asset{}, &StorageLedger{}}
}
