package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrConditionFailed 条件更新未命中：记录当前状态不满足 WHERE 条件
var ErrConditionFailed = errors.New("记录状态已变化，条件更新未生效")
