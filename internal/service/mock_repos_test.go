package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Huzaifa785/rewear-backend/internal/model"
	"github.com/Huzaifa785/rewear-backend/internal/notify"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
	pkgerrors "github.com/Huzaifa785/rewear-backend/pkg/errors"
)

// ════════════════════════════════════════════════════════════
// memStore — 内存版 Repository
//
// 事务：txMu 在整个事务期间持有（串行化，等价于行锁），
// 出错时用事务开始前的快照整体恢复（等价于回滚）。
// 所有记录按值存储，调用方拿到的都是副本。
// ════════════════════════════════════════════════════════════

type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users         map[string]model.User
	items         map[string]model.Item
	swaps         map[string]model.Swap
	transactions  []model.PointTransaction
	notifications []model.Notification

	seq  int
	base time.Time

	// 故障注入：对指定用户入账时返回错误
	failCredit map[string]error
	// 每个用户的入账调用次数（含失败），不随回滚恢复
	creditCalls map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]model.User),
		items:       make(map[string]model.Item),
		swaps:       make(map[string]model.Swap),
		failCredit:  make(map[string]error),
		creditCalls: make(map[string]int),
		base:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// repo 非事务入口
func (m *memStore) repo() *repository.Repository {
	r := m.bound()
	r.Tx = m
	return r
}

// bound 事务内使用的 Repository（Tx 为 nil，嵌套调用直接执行）
func (m *memStore) bound() *repository.Repository {
	return &repository.Repository{
		User:             &memUserRepo{m},
		Item:             &memItemRepo{m},
		Swap:             &memSwapRepo{m},
		PointTransaction: &memPointTxRepo{m},
		Notification:     &memNotificationRepo{m},
	}
}

func (m *memStore) Transaction(_ context.Context, fn func(tx *repository.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(m.bound()); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	users         map[string]model.User
	items         map[string]model.Item
	swaps         map[string]model.Swap
	transactions  []model.PointTransaction
	notifications []model.Notification
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := memSnapshot{
		users:         make(map[string]model.User, len(m.users)),
		items:         make(map[string]model.Item, len(m.items)),
		swaps:         make(map[string]model.Swap, len(m.swaps)),
		transactions:  append([]model.PointTransaction(nil), m.transactions...),
		notifications: append([]model.Notification(nil), m.notifications...),
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	for k, v := range m.items {
		s.items[k] = v
	}
	for k, v := range m.swaps {
		s.swaps[k] = v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = s.users
	m.items = s.items
	m.swaps = s.swaps
	m.transactions = s.transactions
	m.notifications = s.notifications
}

// nextID 生成递增 ID 与单调递增的时间戳
func (m *memStore) nextID(prefix string) (string, time.Time) {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq), m.base.Add(time.Duration(m.seq) * time.Second)
}

// ── 测试数据构造 ──

func (m *memStore) addUser(name string, balance int) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ts := m.nextID("user")
	u := model.User{
		UserID:            id,
		Username:          name,
		Email:             name + "@rewear.test",
		Role:              "member",
		IsActive:          true,
		PointsBalance:     balance,
		TotalPointsEarned: balance,
	}
	u.CreatedAt, u.UpdatedAt, u.Version = ts, ts, 1
	m.users[id] = u
	if balance > 0 {
		txID, _ := m.nextID("ptx")
		m.transactions = append(m.transactions, model.PointTransaction{
			TransactionID:   txID,
			UserID:          id,
			Amount:          balance,
			BalanceAfter:    balance,
			TransactionType: model.TxSignupBonus,
			Description:     "初始余额",
			CreatedAt:       ts,
		})
	}
	return u
}

func (m *memStore) addItem(ownerID, title string, value int) model.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ts := m.nextID("item")
	it := model.Item{
		ItemID:      id,
		OwnerID:     ownerID,
		Title:       title,
		PointsValue: value,
		Status:      model.ItemAvailable,
		IsActive:    true,
	}
	it.CreatedAt, it.UpdatedAt, it.Version = ts, ts, 1
	m.items[id] = it
	return it
}

func (m *memStore) user(id string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memStore) item(id string) model.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func (m *memStore) swap(id string) model.Swap {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.swaps[id]
}

func (m *memStore) setSwap(sw model.Swap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swaps[sw.SwapID] = sw
}

func (m *memStore) setItemStatus(id string, status model.ItemStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.items[id]
	it.Status = status
	m.items[id] = it
}

func (m *memStore) ledgerSum(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := 0
	for _, t := range m.transactions {
		if t.UserID == userID {
			sum += t.Amount
		}
	}
	return sum
}

func (m *memStore) transactionsOf(userID string) []model.PointTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PointTransaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

// ── User ──

type memUserRepo struct{ m *memStore }

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	id, ts := r.m.nextID("user")
	if user.UserID == "" {
		user.UserID = id
	}
	user.CreatedAt, user.UpdatedAt, user.Version = ts, ts, 1
	r.m.users[user.UserID] = *user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memUserRepo) GetByLogin(_ context.Context, login string) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == login || u.Email == login {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) ApplyCredit(_ context.Context, userID string, amount int) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.creditCalls[userID]++
	if err := r.m.failCredit[userID]; err != nil {
		return 0, err
	}
	u, ok := r.m.users[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	u.PointsBalance += amount
	u.TotalPointsEarned += amount
	u.Version++
	r.m.users[userID] = u
	return u.PointsBalance, nil
}

func (r *memUserRepo) ApplyDebit(_ context.Context, userID string, amount int) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok || u.PointsBalance < amount {
		return 0, pkgerrors.ErrConditionFailed
	}
	u.PointsBalance -= amount
	u.TotalPointsSpent += amount
	u.Version++
	r.m.users[userID] = u
	return u.PointsBalance, nil
}

// ── Item ──

type memItemRepo struct{ m *memStore }

func (r *memItemRepo) Create(_ context.Context, item *model.Item) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	id, ts := r.m.nextID("item")
	if item.ItemID == "" {
		item.ItemID = id
	}
	item.CreatedAt, item.UpdatedAt, item.Version = ts, ts, 1
	r.m.items[item.ItemID] = *item
	return nil
}

func (r *memItemRepo) GetByID(_ context.Context, id string) (*model.Item, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	it, ok := r.m.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &it, nil
}

func (r *memItemRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Item, error) {
	return r.GetByID(ctx, id)
}

func (r *memItemRepo) Update(_ context.Context, item *model.Item) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.items[item.ItemID]
	if !ok || cur.Version != item.Version {
		return pkgerrors.ErrOptimisticLock
	}
	item.Version++
	r.m.items[item.ItemID] = *item
	return nil
}

func (r *memItemRepo) TransitionStatus(_ context.Context, id string, from, to model.ItemStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	it, ok := r.m.items[id]
	if !ok || it.Status != from || !it.IsActive {
		return pkgerrors.ErrConditionFailed
	}
	it.Status = to
	it.Version++
	r.m.items[id] = it
	return nil
}

// ── Swap ──

type memSwapRepo struct{ m *memStore }

func (r *memSwapRepo) Create(_ context.Context, swap *model.Swap) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if swap.Status == model.SwapPending {
		for _, s := range r.m.swaps {
			if s.Status == model.SwapPending && s.ItemID == swap.ItemID && s.RequesterID == swap.RequesterID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	id, ts := r.m.nextID("swap")
	if swap.SwapID == "" {
		swap.SwapID = id
	}
	swap.CreatedAt, swap.UpdatedAt, swap.Version = ts, ts, 1
	r.m.swaps[swap.SwapID] = *swap
	return nil
}

func (r *memSwapRepo) GetByID(_ context.Context, id string) (*model.Swap, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.swaps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *memSwapRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Swap, error) {
	return r.GetByID(ctx, id)
}

func (r *memSwapRepo) UpdateStatus(_ context.Context, swap *model.Swap, from model.SwapStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.swaps[swap.SwapID]
	if !ok || cur.Status != from {
		return pkgerrors.ErrConditionFailed
	}
	cur.Status = swap.Status
	cur.OwnerResponse = swap.OwnerResponse
	cur.RespondedAt = swap.RespondedAt
	cur.CompletedAt = swap.CompletedAt
	cur.Version++
	_, cur.UpdatedAt = r.m.nextID("tick")
	r.m.swaps[swap.SwapID] = cur
	swap.Version = cur.Version
	swap.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *memSwapRepo) ExistsPending(_ context.Context, itemID, requesterID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.swaps {
		if s.Status == model.SwapPending && s.ItemID == itemID && s.RequesterID == requesterID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSwapRepo) ListOverdueIDs(_ context.Context, now time.Time, limit int) ([]string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var overdue []model.Swap
	for _, s := range r.m.swaps {
		if s.Status == model.SwapPending && s.ExpiresAt.Before(now) {
			overdue = append(overdue, s)
		}
	}
	sort.Slice(overdue, func(i, j int) bool { return overdue[i].ExpiresAt.Before(overdue[j].ExpiresAt) })
	var ids []string
	for i := 0; i < len(overdue) && i < limit; i++ {
		ids = append(ids, overdue[i].SwapID)
	}
	return ids, nil
}

func (r *memSwapRepo) ExpireOverdue(_ context.Context, filter repository.OverdueFilter, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	allowed := map[string]bool{}
	for _, id := range filter.SwapIDs {
		allowed[id] = true
	}
	var n int64
	for id, s := range r.m.swaps {
		if s.Status != model.SwapPending || !s.ExpiresAt.Before(now) {
			continue
		}
		if filter.UserID != "" && !s.IsParty(filter.UserID) {
			continue
		}
		if len(allowed) > 0 && !allowed[id] {
			continue
		}
		s.Status = model.SwapExpired
		s.Version++
		r.m.swaps[id] = s
		n++
	}
	return n, nil
}

func (r *memSwapRepo) viewOf(s model.Swap) repository.SwapView {
	v := repository.SwapView{Swap: s}
	if it, ok := r.m.items[s.ItemID]; ok {
		v.ItemTitle = it.Title
		v.ItemPointsValue = it.PointsValue
	}
	if s.OfferedItemID != nil {
		v.OfferedItemTitle = r.m.items[*s.OfferedItemID].Title
	}
	v.RequesterUsername = r.m.users[s.RequesterID].Username
	v.OwnerUsername = r.m.users[s.ItemOwnerID].Username
	return v
}

func inBox(s model.Swap, userID string, box repository.SwapBox) bool {
	switch box {
	case repository.SwapBoxSent:
		return s.RequesterID == userID
	case repository.SwapBoxReceived:
		return s.ItemOwnerID == userID
	default:
		return s.IsParty(userID)
	}
}

func (r *memSwapRepo) GetView(_ context.Context, id string) (*repository.SwapView, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.swaps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	v := r.viewOf(s)
	return &v, nil
}

func (r *memSwapRepo) sorted(match func(model.Swap) bool) []repository.SwapView {
	var views []repository.SwapView
	for _, s := range r.m.swaps {
		if match(s) {
			views = append(views, r.viewOf(s))
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) })
	return views
}

func (r *memSwapRepo) List(_ context.Context, filter repository.SwapListFilter, offset, limit int) ([]repository.SwapView, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	views := r.sorted(func(s model.Swap) bool {
		if !inBox(s, filter.UserID, filter.Box) {
			return false
		}
		return filter.Status == nil || s.Status == *filter.Status
	})
	total := int64(len(views))
	if offset >= len(views) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(views) {
		end = len(views)
	}
	return views[offset:end], total, nil
}

func (r *memSwapRepo) CountByStatus(_ context.Context, userID string, box repository.SwapBox) (map[model.SwapStatus]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	counts := map[model.SwapStatus]int64{}
	for _, s := range r.m.swaps {
		if inBox(s, userID, box) {
			counts[s.Status]++
		}
	}
	return counts, nil
}

func (r *memSwapRepo) ListRecent(_ context.Context, userID string, limit int) ([]repository.SwapView, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	views := r.sorted(func(s model.Swap) bool { return s.IsParty(userID) })
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// ── PointTransaction ──

type memPointTxRepo struct{ m *memStore }

func (r *memPointTxRepo) Create(_ context.Context, tx *model.PointTransaction) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	id, ts := r.m.nextID("ptx")
	if tx.TransactionID == "" {
		tx.TransactionID = id
	}
	tx.CreatedAt = ts
	r.m.transactions = append(r.m.transactions, *tx)
	return nil
}

func (r *memPointTxRepo) ListByUser(_ context.Context, userID string, txType model.TransactionType, offset, limit int) ([]model.PointTransaction, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.PointTransaction
	for i := len(r.m.transactions) - 1; i >= 0; i-- {
		t := r.m.transactions[i]
		if t.UserID == userID && (txType == "" || t.TransactionType == txType) {
			out = append(out, t)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *memPointTxRepo) ListAllByUser(_ context.Context, userID string) ([]model.PointTransaction, error) {
	return r.m.transactionsOf(userID), nil
}

func (r *memPointTxRepo) SumByUser(_ context.Context, userID string) (int64, error) {
	return int64(r.m.ledgerSum(userID)), nil
}

// ── Notification ──

type memNotificationRepo struct{ m *memStore }

func (r *memNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	id, ts := r.m.nextID("ntf")
	if n.NotificationID == "" {
		n.NotificationID = id
	}
	n.CreatedAt, n.UpdatedAt = ts, ts
	r.m.notifications = append(r.m.notifications, *n)
	return nil
}

func (r *memNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Notification
	for i := len(r.m.notifications) - 1; i >= 0; i-- {
		n := r.m.notifications[i]
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, userID, notificationID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i, n := range r.m.notifications {
		if n.NotificationID == notificationID && n.UserID == userID {
			r.m.notifications[i].IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for i, row := range r.m.notifications {
		if row.UserID == userID && !row.IsRead {
			r.m.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (r *memNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, row := range r.m.notifications {
		if row.UserID == userID && !row.IsRead {
			n++
		}
	}
	return n, nil
}

// ════════════════════════════════════════════════════════════
// recordingNotifier — 记录入队事件，并可断言入队时事务已提交
// ════════════════════════════════════════════════════════════

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	// onDispatch 在入队时回调（用于检查提交顺序）
	onDispatch func(ev notify.Event)
}

func (n *recordingNotifier) Dispatch(ev notify.Event) {
	if n.onDispatch != nil {
		n.onDispatch(ev)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Kind, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (n *recordingNotifier) byKind(kind notify.Kind) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, ev := range n.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// fakeClock 可拨动的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
