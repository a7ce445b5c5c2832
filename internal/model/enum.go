package model

import "fmt"

// ── 物品状态 ──

// ItemStatus 物品可用状态，以 smallint 码值持久化
type ItemStatus int16

const (
	ItemAvailable   ItemStatus = 1
	ItemPendingSwap ItemStatus = 2
	ItemSwapped     ItemStatus = 3
	ItemWithdrawn   ItemStatus = 4
	ItemUnderReview ItemStatus = 5
	ItemRejected    ItemStatus = 6
)

var itemStatusNames = map[ItemStatus]string{
	ItemAvailable:   "available",
	ItemPendingSwap: "pending_swap",
	ItemSwapped:     "swapped",
	ItemWithdrawn:   "withdrawn",
	ItemUnderReview: "under_review",
	ItemRejected:    "rejected",
}

func (s ItemStatus) String() string {
	if name, ok := itemStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("item_status(%d)", int16(s))
}

// Valid 是否为已定义的码值
func (s ItemStatus) Valid() bool {
	_, ok := itemStatusNames[s]
	return ok
}

// Locked 交换占用中或已完成交换的物品不可被物主修改、下架
func (s ItemStatus) Locked() bool {
	return s == ItemPendingSwap || s == ItemSwapped
}

func (s ItemStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("无效的物品状态码: %d", int16(s))
	}
	return []byte(s.String()), nil
}

func (s *ItemStatus) UnmarshalText(text []byte) error {
	for code, name := range itemStatusNames {
		if name == string(text) {
			*s = code
			return nil
		}
	}
	return fmt.Errorf("无效的物品状态: %q", text)
}

// ── 交换类型 ──

// SwapType 交换类型
type SwapType int16

const (
	SwapDirect           SwapType = 1 // 以物换物
	SwapPointsRedemption SwapType = 2 // 积分兑换
)

var swapTypeNames = map[SwapType]string{
	SwapDirect:           "direct_swap",
	SwapPointsRedemption: "points_redemption",
}

func (t SwapType) String() string {
	if name, ok := swapTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("swap_type(%d)", int16(t))
}

// Valid 是否为已定义的码值
func (t SwapType) Valid() bool {
	_, ok := swapTypeNames[t]
	return ok
}

func (t SwapType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("无效的交换类型码: %d", int16(t))
	}
	return []byte(t.String()), nil
}

func (t *SwapType) UnmarshalText(text []byte) error {
	for code, name := range swapTypeNames {
		if name == string(text) {
			*t = code
			return nil
		}
	}
	return fmt.Errorf("无效的交换类型: %q", text)
}

// ── 交换状态 ──

// SwapStatus 交换状态机
//
//	pending  → accepted | rejected | cancelled | expired
//	accepted → completed
//
// 其余状态均为终态。
type SwapStatus int16

const (
	SwapPending   SwapStatus = 1
	SwapAccepted  SwapStatus = 2
	SwapRejected  SwapStatus = 3
	SwapCompleted SwapStatus = 4
	SwapCancelled SwapStatus = 5
	SwapExpired   SwapStatus = 6
)

var swapStatusNames = map[SwapStatus]string{
	SwapPending:   "pending",
	SwapAccepted:  "accepted",
	SwapRejected:  "rejected",
	SwapCompleted: "completed",
	SwapCancelled: "cancelled",
	SwapExpired:   "expired",
}

var swapTransitions = map[SwapStatus][]SwapStatus{
	SwapPending:  {SwapAccepted, SwapRejected, SwapCancelled, SwapExpired},
	SwapAccepted: {SwapCompleted},
}

// SwapStatuses 全部状态，按码值排序
func SwapStatuses() []SwapStatus {
	return []SwapStatus{SwapPending, SwapAccepted, SwapRejected, SwapCompleted, SwapCancelled, SwapExpired}
}

func (s SwapStatus) String() string {
	if name, ok := swapStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("swap_status(%d)", int16(s))
}

// Valid 是否为已定义的码值
func (s SwapStatus) Valid() bool {
	_, ok := swapStatusNames[s]
	return ok
}

// IsTerminal 终态不允许任何迁移
func (s SwapStatus) IsTerminal() bool {
	return len(swapTransitions[s]) == 0
}

// CanTransitionTo 判断状态迁移是否合法
func (s SwapStatus) CanTransitionTo(to SwapStatus) bool {
	for _, next := range swapTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s SwapStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("无效的交换状态码: %d", int16(s))
	}
	return []byte(s.String()), nil
}

func (s *SwapStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseSwapStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSwapStatus 将状态名解析为码值
func ParseSwapStatus(name string) (SwapStatus, error) {
	for code, n := range swapStatusNames {
		if n == name {
			return code, nil
		}
	}
	return 0, fmt.Errorf("无效的交换状态: %q", name)
}

// ── 积分流水类型 ──

// TransactionType 积分流水类型标签
type TransactionType string

const (
	TxSignupBonus      TransactionType = "signup_bonus"
	TxItemListed       TransactionType = "item_listed"
	TxSwapCompleted    TransactionType = "swap_completed"
	TxPointsRedemption TransactionType = "points_redemption"
	TxPointsReceived   TransactionType = "points_received"
	TxAdjustment       TransactionType = "adjustment"
)
