package repository

import (
	"context"
	"sync"
	"time"

	"swiftshare-go/internal/model"
)

// memoryFileRepository 是 FileRepository 接口的进程内实现。
// 以 id 为主键的映射加 slug 二级索引，整库一把锁（预期负载下足够，
// 也天然满足"读到旧值或新值、绝不读到中间态"的要求）。
// 作为显式构造的存储对象注入使用，不是进程级单例。
type memoryFileRepository struct {
	mu      sync.Mutex
	records map[uint]*model.FileRecord
	bySlug  map[string]uint
	// lastID 只增不减，保证 id 严格递增且永不复用
	lastID uint
	now    func() time.Time
}

// NewMemoryFileRepository 创建一个空的内存存储。
func NewMemoryFileRepository(now func() time.Time) FileRepository {
	if now == nil {
		now = time.Now
	}
	return &memoryFileRepository{
		records: make(map[uint]*model.FileRecord),
		bySlug:  make(map[string]uint),
		now:     now,
	}
}

// clone 返回记录的副本，避免调用方修改存储内部状态。
func clone(r *model.FileRecord) *model.FileRecord {
	c := *r
	return &c
}

func (m *memoryFileRepository) Insert(_ context.Context, record *model.FileRecord) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if occupantID, taken := m.bySlug[record.Slug]; taken {
		occupant := m.records[occupantID]
		if !occupant.IsExpired(m.now()) {
			return nil, ErrDuplicateSlug
		}
		// 过期的占用不算在世，就地清除后放行
		m.removeLocked(occupant)
	}

	m.lastID++
	record.ID = m.lastID
	stored := clone(record)
	m.records[stored.ID] = stored
	m.bySlug[stored.Slug] = stored.ID
	return clone(stored), nil
}

func (m *memoryFileRepository) FindBySlug(_ context.Context, slug string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.bySlug[slug]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return m.lookupLocked(id)
}

func (m *memoryFileRepository) FindByID(_ context.Context, id uint) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupLocked(id)
}

// lookupLocked 读取一条记录并执行惰性过期删除。调用方必须持有锁。
func (m *memoryFileRepository) lookupLocked(id uint) (*model.FileRecord, error) {
	record, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	if record.IsExpired(m.now()) {
		m.removeLocked(record)
		return nil, ErrRecordExpired
	}
	return clone(record), nil
}

func (m *memoryFileRepository) Update(_ context.Context, id uint, fields map[string]interface{}) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}

	for k, v := range fields {
		if _, allowed := allowedUpdateFields[k]; !allowed {
			continue
		}
		switch k {
		case "download_count":
			if n, ok := v.(int); ok {
				record.DownloadCount = n
			}
		case "recipient_email":
			if s, ok := v.(string); ok {
				record.RecipientEmail = s
			}
		case "message":
			if s, ok := v.(string); ok {
				record.Message = s
			}
		}
	}
	return clone(record), nil
}

func (m *memoryFileRepository) IncrementDownloadCount(_ context.Context, id uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok {
		return 0, ErrRecordNotFound
	}
	record.DownloadCount++
	return record.DownloadCount, nil
}

func (m *memoryFileRepository) Delete(_ context.Context, ids []uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for _, id := range ids {
		if record, ok := m.records[id]; ok {
			m.removeLocked(record)
			removed++
		}
	}
	return removed, nil
}

func (m *memoryFileRepository) SweepExpired(_ context.Context, now time.Time) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for _, record := range m.records {
		if record.ExpirationDate.Before(now) {
			m.removeLocked(record)
			removed++
		}
	}
	return removed, int64(len(m.records)), nil
}

func (m *memoryFileRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.bySlug[slug]
	if !ok {
		return false, nil
	}
	record := m.records[id]
	// 已过期的占用不算在世，slug 可以复用
	return !record.IsExpired(m.now()), nil
}

// removeLocked 从主存储和 slug 索引中移除记录。调用方必须持有锁。
func (m *memoryFileRepository) removeLocked(record *model.FileRecord) {
	delete(m.records, record.ID)
	delete(m.bySlug, record.Slug)
}
