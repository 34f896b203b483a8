// Package repository 定义了文件记录的存取接口和实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"swiftshare-go/internal/model"
	"swiftshare-go/pkg/log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var (
	// ErrRecordNotFound 表示指定的记录不存在（从未创建或已被删除）。
	ErrRecordNotFound = errors.New("file record not found")
	// ErrRecordExpired 表示记录存在但已过期；返回该错误的同时记录已被惰性删除。
	// 之后对同一记录的访问将返回 ErrRecordNotFound。
	ErrRecordExpired = errors.New("file record expired")
	// ErrDuplicateSlug 表示候选 slug 已被在世记录占用。
	// 调用方应当预先生成唯一 slug，这里是插入时的最终防线。
	ErrDuplicateSlug = errors.New("slug already in use")
)

// allowedUpdateFields 限定 Update 可以合并的列。
// 其余字段（id、slug、时间戳等）在记录生命周期内不可变。
var allowedUpdateFields = map[string]struct{}{
	"download_count":  {},
	"recipient_email": {},
	"message":         {},
}

// FileRepository 接口定义了文件记录的持久化操作。
// 所有读取路径都内置过期语义：已过期的记录绝不会被返回。
type FileRepository interface {
	Insert(ctx context.Context, record *model.FileRecord) (*model.FileRecord, error)
	FindBySlug(ctx context.Context, slug string) (*model.FileRecord, error)
	FindByID(ctx context.Context, id uint) (*model.FileRecord, error)
	Update(ctx context.Context, id uint, fields map[string]interface{}) (*model.FileRecord, error)
	IncrementDownloadCount(ctx context.Context, id uint) (int, error)
	Delete(ctx context.Context, ids []uint) (int64, error)
	SweepExpired(ctx context.Context, now time.Time) (removed int64, remaining int64, err error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// slugCacheTTL 是 slug 查询缓存的最长存活时间。
const slugCacheTTL = 10 * time.Minute

// fileRepository 是 FileRepository 接口的 GORM+Redis 实现（远程表后端）。
// Redis 只缓存 slug 查询结果，任何失败都会回落到 MySQL；缓存永远不是权威数据。
type fileRepository struct {
	db  *gorm.DB
	rdb *redis.Client
	now func() time.Time
}

// NewFileRepository 创建一个新的 FileRepository 实例。
// now 为可注入的时钟，便于测试过期边界。
func NewFileRepository(db *gorm.DB, rdb *redis.Client, now func() time.Time) FileRepository {
	if now == nil {
		now = time.Now
	}
	return &fileRepository{db: db, rdb: rdb, now: now}
}

func slugCacheKey(s string) string {
	return "share:slug:" + s
}

// Insert 插入一条新记录并返回带 id 的完整记录。
// 插入前再次校验 slug 在在世记录中唯一，作为生成端乐观检查之外的最终保障。
// 已过期的占用不算在世，会被就地清除后放行，与内存后端语义一致。
func (r *fileRepository) Insert(ctx context.Context, record *model.FileRecord) (*model.FileRecord, error) {
	now := r.now()
	var count int64
	err := r.db.WithContext(ctx).Model(&model.FileRecord{}).
		Where("slug = ? AND expiration_date >= ?", record.Slug, now).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateSlug
	}

	// 先清除过期占用，否则唯一索引会拒绝插入
	if err := r.db.WithContext(ctx).
		Where("slug = ? AND expiration_date < ?", record.Slug, now).
		Delete(&model.FileRecord{}).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	r.cacheDelete(ctx, record.Slug)
	return record, nil
}

// FindBySlug 按 slug 检索在世记录。发现已过期的记录时就地删除并返回 ErrRecordExpired。
func (r *fileRepository) FindBySlug(ctx context.Context, slug string) (*model.FileRecord, error) {
	if cached := r.cacheGet(ctx, slug); cached != nil {
		if cached.IsExpired(r.now()) {
			// 缓存命中但已过期：走数据库路径完成惰性删除
			r.cacheDelete(ctx, slug)
		} else {
			return cached, nil
		}
	}

	var record model.FileRecord
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	if record.IsExpired(r.now()) {
		r.purge(ctx, &record)
		return nil, ErrRecordExpired
	}

	r.cacheSet(ctx, &record)
	return &record, nil
}

// FindByID 按 id 检索在世记录，过期语义与 FindBySlug 相同。
func (r *fileRepository) FindByID(ctx context.Context, id uint) (*model.FileRecord, error) {
	var record model.FileRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	if record.IsExpired(r.now()) {
		r.purge(ctx, &record)
		return nil, ErrRecordExpired
	}
	return &record, nil
}

// Update 将 fields 合并到指定记录并返回更新后的记录。
// 只接受 download_count、recipient_email、message 三个可变列。
func (r *fileRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) (*model.FileRecord, error) {
	filtered := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if _, ok := allowedUpdateFields[k]; ok {
			filtered[k] = v
		}
	}

	if len(filtered) > 0 {
		res := r.db.WithContext(ctx).Model(&model.FileRecord{}).
			Where("id = ?", id).Updates(filtered)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Updates 对不存在的行不报错，需要区分 "不存在" 和 "值未变化"
			var count int64
			if err := r.db.WithContext(ctx).Model(&model.FileRecord{}).
				Where("id = ?", id).Count(&count).Error; err != nil {
				return nil, err
			}
			if count == 0 {
				return nil, ErrRecordNotFound
			}
		}
	}

	var record model.FileRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	r.cacheDelete(ctx, record.Slug)
	return &record, nil
}

// IncrementDownloadCount 将下载次数原子地加一并返回新值。
// 自增在数据库侧完成，并发下载不会丢失更新。
func (r *fileRepository) IncrementDownloadCount(ctx context.Context, id uint) (int, error) {
	res := r.db.WithContext(ctx).Model(&model.FileRecord{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrRecordNotFound
	}

	var record model.FileRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return 0, err
	}
	r.cacheDelete(ctx, record.Slug)
	return record.DownloadCount, nil
}

// Delete 删除指定 id 集合对应的记录，返回实际删除的条数。
func (r *fileRepository) Delete(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var slugs []string
	if err := r.db.WithContext(ctx).Model(&model.FileRecord{}).
		Where("id IN ?", ids).Pluck("slug", &slugs).Error; err != nil {
		return 0, err
	}

	res := r.db.WithContext(ctx).Delete(&model.FileRecord{}, ids)
	if res.Error != nil {
		return 0, res.Error
	}
	for _, s := range slugs {
		r.cacheDelete(ctx, s)
	}
	return res.RowsAffected, nil
}

// SweepExpired 批量删除所有 expiration_date < now 的记录。幂等，可重复调用。
func (r *fileRepository) SweepExpired(ctx context.Context, now time.Time) (int64, int64, error) {
	var slugs []string
	if err := r.db.WithContext(ctx).Model(&model.FileRecord{}).
		Where("expiration_date < ?", now).Pluck("slug", &slugs).Error; err != nil {
		return 0, 0, err
	}

	res := r.db.WithContext(ctx).
		Where("expiration_date < ?", now).
		Delete(&model.FileRecord{})
	if res.Error != nil {
		return 0, 0, res.Error
	}
	for _, s := range slugs {
		r.cacheDelete(ctx, s)
	}

	var remaining int64
	if err := r.db.WithContext(ctx).Model(&model.FileRecord{}).Count(&remaining).Error; err != nil {
		return res.RowsAffected, 0, err
	}
	return res.RowsAffected, remaining, nil
}

// SlugExists 判断 slug 是否被任意在世记录占用，供生成端的乐观检查使用。
func (r *fileRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.FileRecord{}).
		Where("slug = ? AND expiration_date >= ?", slug, r.now()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// purge 惰性删除一条已过期的记录。
func (r *fileRepository) purge(ctx context.Context, record *model.FileRecord) {
	if err := r.db.WithContext(ctx).Delete(&model.FileRecord{}, record.ID).Error; err != nil {
		log.Warnf("[FileRepository] 惰性删除过期记录失败, id: %d, error: %v", record.ID, err)
	}
	r.cacheDelete(ctx, record.Slug)
}

func (r *fileRepository) cacheGet(ctx context.Context, slug string) *model.FileRecord {
	if r.rdb == nil {
		return nil
	}
	data, err := r.rdb.Get(ctx, slugCacheKey(slug)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warnf("[FileRepository] 读取 slug 缓存失败, slug: %s, error: %v", slug, err)
		}
		return nil
	}
	var record model.FileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil
	}
	return &record
}

func (r *fileRepository) cacheSet(ctx context.Context, record *model.FileRecord) {
	if r.rdb == nil {
		return
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	// TTL 不超过记录的剩余有效期
	ttl := slugCacheTTL
	if remaining := record.ExpirationDate.Sub(r.now()); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	if err := r.rdb.Set(ctx, slugCacheKey(record.Slug), data, ttl).Err(); err != nil {
		log.Warnf("[FileRepository] 写入 slug 缓存失败, slug: %s, error: %v", record.Slug, err)
	}
}

func (r *fileRepository) cacheDelete(ctx context.Context, slug string) {
	if r.rdb == nil || slug == "" {
		return
	}
	if err := r.rdb.Del(ctx, slugCacheKey(slug)).Err(); err != nil {
		log.Warnf("[FileRepository] 删除 slug 缓存失败, slug: %s, error: %v", slug, err)
	}
}
