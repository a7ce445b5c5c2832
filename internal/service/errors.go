package service

import "errors"

// ── 校验错误（400） ──

var (
	ErrSwapValidation        = errors.New("交换请求参数不合法")
	ErrSelfSwap              = errors.New("不能对自己的物品发起交换")
	ErrOfferedItemRequired   = errors.New("以物换物必须提供 offered_item_id")
	ErrPointsOfferedRequired = errors.New("积分兑换必须提供 points_offered")
	ErrPointsBelowMinimum    = errors.New("报价积分低于物品价值的一半")
	ErrInvalidPostingAmount  = errors.New("记账金额必须为正整数")
	ErrItemValidation        = errors.New("物品参数不合法")
)

// ── 不存在或无权访问（404），两者刻意不做区分 ──

var (
	ErrSwapNotFound         = errors.New("交换请求不存在或已处理")
	ErrItemNotFound         = errors.New("物品不存在")
	ErrOfferedItemNotFound  = errors.New("报价物品不存在或不可用")
	ErrUserNotFound         = errors.New("用户不存在")
	ErrNotificationNotFound = errors.New("通知不存在")
)

// ── 状态冲突（409） ──

var (
	ErrSwapStateConflict    = errors.New("交换当前状态不允许此操作")
	ErrSwapExpired          = errors.New("交换请求已过期")
	ErrItemUnavailable      = errors.New("物品当前不可交换")
	ErrDuplicatePendingSwap = errors.New("你已对该物品发起过待处理的交换请求")
	ErrItemLocked           = errors.New("物品处于交换中或已交换，不可修改")
	ErrUserExists           = errors.New("用户名或邮箱已被注册")
)

// ── 余额不足（400，独立错误码） ──

var ErrInsufficientPoints = errors.New("积分余额不足")

// ── 认证 ──

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrAccountDisabled    = errors.New("账号已停用")
)
