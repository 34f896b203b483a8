package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"swiftshare-go/internal/config"
	"swiftshare-go/internal/model"
	"swiftshare-go/internal/repository"
	"swiftshare-go/pkg/log"
	"swiftshare-go/pkg/slug"
	"swiftshare-go/pkg/tasks"
)

// maxInsertAttempts 是插入冲突时的总尝试次数（初次 + 重试两次）。
// 生成端已做乐观查重，到达存储层的冲突是极小概率事件。
const maxInsertAttempts = 3

// ContentStore 是内容存取协作方的接口：上传时落对象，下载时签发传输 URL。
type ContentStore interface {
	Put(ctx context.Context, filePath, fileName, fileType string) error
	PresignDownloadURL(ctx context.Context, filePath, fileName string) (string, error)
}

// EventPublisher 是生命周期事件与分享通知的发布接口。
type EventPublisher interface {
	PublishFileEvent(ctx context.Context, task tasks.FileEventTask) error
	PublishShareNotification(ctx context.Context, task tasks.ShareNotificationTask) error
}

// FileService 接口定义了文件分享生命周期的业务操作。
type FileService interface {
	Upload(ctx context.Context, input model.UploadInput, share model.ShareData) (*model.FileDescriptor, error)
	GetByShareSlug(ctx context.Context, shareSlug string) (*model.FileDescriptor, error)
	GenerateShareLink(ctx context.Context, id uint, share model.ShareData) (*model.ShareLink, error)
	Download(ctx context.Context, id uint) (*model.DownloadResult, error)
	GetFileStats(ctx context.Context, id uint) (*model.FileStats, error)
	CleanupExpired(ctx context.Context) model.CleanupResult
}

type fileService struct {
	repo      repository.FileRepository
	content   ContentStore
	publisher EventPublisher
	shareCfg  config.ShareConfig
	now       func() time.Time
}

// NewFileService 创建一个新的 FileService 实例。
// now 为可注入的时钟，便于测试过期语义。
func NewFileService(repo repository.FileRepository, content ContentStore, publisher EventPublisher, shareCfg config.ShareConfig, now func() time.Time) FileService {
	if now == nil {
		now = time.Now
	}
	return &fileService{
		repo:      repo,
		content:   content,
		publisher: publisher,
		shareCfg:  shareCfg,
		now:       now,
	}
}

// Upload 处理一次文件上传：校验 → 生成唯一 slug → 建立记录 → 返回描述结构。
// 校验失败时不产生任何存储变更。
func (s *fileService) Upload(ctx context.Context, input model.UploadInput, share model.ShareData) (*model.FileDescriptor, error) {
	log.Infof("[Upload] 开始处理上传, fileName: %s, fileSize: %d", input.Name, input.Size)

	if err := ValidateFile(input.Name, input.Size, input.Type, s.shareCfg.MaxFileSizeBytes); err != nil {
		log.Infof("[Upload] 校验未通过, fileName: %s, reason: %v", input.Name, err)
		return nil, err
	}

	now := s.now()
	retention := time.Duration(s.shareCfg.RetentionDays) * 24 * time.Hour

	var inserted *model.FileRecord
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		candidate, err := slug.GenerateUnique(s.shareCfg.SlugLength, s.slugTaken(ctx))
		if err != nil {
			log.Error("[Upload] slug 生成重试耗尽", err)
			return nil, ErrUploadFailed
		}

		record := &model.FileRecord{
			FileName:        input.Name,
			FileSize:        input.Size,
			FileType:        input.Type,
			Slug:            candidate,
			UploadTimestamp: now,
			ExpirationDate:  now.Add(retention),
			DownloadCount:   0,
			RecipientEmail:  share.RecipientEmail,
			Message:         share.Message,
			FilePath:        fmt.Sprintf("/uploads/%s_%s", candidate, input.Name),
		}

		inserted, err = s.repo.Insert(ctx, record)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateSlug) {
			// 乐观检查与插入之间被并发占用，换一个 slug 再试
			log.Warnf("[Upload] slug 冲突, candidate: %s, attempt: %d", candidate, attempt)
			continue
		}
		log.Error("[Upload] 插入文件记录失败", err)
		return nil, err
	}
	if inserted == nil {
		return nil, ErrUploadFailed
	}

	// 写入模拟内容对象；内容存储失败不阻塞上传
	if err := s.content.Put(ctx, inserted.FilePath, inserted.FileName, inserted.FileType); err != nil {
		log.Warnf("[Upload] 写入内容对象失败, filePath: %s, error: %v", inserted.FilePath, err)
	}

	s.publishEvent(ctx, tasks.FileEventTask{
		Event:      tasks.EventFileUploaded,
		FileID:     inserted.ID,
		Slug:       inserted.Slug,
		FileName:   inserted.FileName,
		OccurredAt: now,
	})

	log.Infof("[Upload] 上传完成, id: %d, slug: %s", inserted.ID, inserted.Slug)
	return inserted.ToDescriptor(), nil
}

// GetByShareSlug 按分享标识符检索文件描述。过期与不存在返回可区分的错误。
func (s *fileService) GetByShareSlug(ctx context.Context, shareSlug string) (*model.FileDescriptor, error) {
	record, err := s.repo.FindBySlug(ctx, shareSlug)
	if err != nil {
		return nil, s.mapLookupError(err)
	}
	return record.ToDescriptor(), nil
}

// GenerateShareLink 为指定文件生成公开分享链接。
// 如携带收件人或留言则先合并到记录；合并失败不阻塞链接生成。
func (s *fileService) GenerateShareLink(ctx context.Context, id uint, share model.ShareData) (*model.ShareLink, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err)
	}

	if share.Present() {
		fields := make(map[string]interface{}, 2)
		if share.RecipientEmail != "" {
			fields["recipient_email"] = share.RecipientEmail
		}
		if share.Message != "" {
			fields["message"] = share.Message
		}
		if updated, err := s.repo.Update(ctx, id, fields); err != nil {
			log.Warnf("[GenerateShareLink] 合并分享字段失败, id: %d, error: %v", id, err)
		} else {
			record = updated
		}
	}

	shareURL := s.shareURL(record.Slug)
	link := &model.ShareLink{
		ShareURL:       shareURL,
		ExpirationDate: record.ExpirationDate,
		Slug:           record.Slug,
	}

	if record.RecipientEmail != "" {
		s.publishNotification(ctx, tasks.ShareNotificationTask{
			FileID:         record.ID,
			Slug:           record.Slug,
			FileName:       record.FileName,
			RecipientEmail: record.RecipientEmail,
			Message:        record.Message,
			ShareURL:       shareURL,
			ExpirationDate: record.ExpirationDate,
		})
	}

	log.Infof("[GenerateShareLink] 分享链接已生成, id: %d, slug: %s", record.ID, record.Slug)
	return link, nil
}

// Download 处理一次下载：检索 → 计数加一 → 调用内容传输协作方。
// 计数先于传输提交；传输失败返回 ErrTransferFailed 但计数不回滚。
func (s *fileService) Download(ctx context.Context, id uint) (*model.DownloadResult, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err)
	}

	count, err := s.repo.IncrementDownloadCount(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	s.publishEvent(ctx, tasks.FileEventTask{
		Event:         tasks.EventFileDownloaded,
		FileID:        record.ID,
		Slug:          record.Slug,
		FileName:      record.FileName,
		DownloadCount: count,
		OccurredAt:    s.now(),
	})

	// 计数已提交，此后才触发一次内容传输
	downloadURL, err := s.content.PresignDownloadURL(ctx, record.FilePath, record.FileName)
	if err != nil {
		log.Error("[Download] 内容传输协作方失败", err)
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	log.Infof("[Download] 下载成功, id: %d, downloadCount: %d", record.ID, count)
	return &model.DownloadResult{
		Success:       true,
		DownloadCount: count,
		DownloadURL:   downloadURL,
	}, nil
}

// GetFileStats 返回单个文件的下载统计信息。
func (s *fileService) GetFileStats(ctx context.Context, id uint) (*model.FileStats, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err)
	}
	return &model.FileStats{
		DownloadCount:   record.DownloadCount,
		UploadTimestamp: record.UploadTimestamp,
		ExpirationDate:  record.ExpirationDate,
	}, nil
}

// CleanupExpired 批量清理所有过期记录。
// 清理是尽力而为的后台操作：后端失败时降级为零计数返回，不向上传播。
func (s *fileService) CleanupExpired(ctx context.Context) model.CleanupResult {
	now := s.now()
	removed, remaining, err := s.repo.SweepExpired(ctx, now)
	if err != nil {
		log.Error("[CleanupExpired] 清理过期记录失败", err)
		return model.CleanupResult{}
	}

	if removed > 0 {
		s.publishEvent(ctx, tasks.FileEventTask{
			Event:        tasks.EventFilesSwept,
			RemovedCount: removed,
			OccurredAt:   now,
		})
	}

	log.Infof("[CleanupExpired] 清理完成, removed: %d, remaining: %d", removed, remaining)
	return model.CleanupResult{RemovedCount: removed, RemainingCount: remaining}
}

// slugTaken 返回生成端使用的占用谓词。
// 谓词是乐观的：后端查询失败时按未占用处理，由插入时的权威校验兜底。
func (s *fileService) slugTaken(ctx context.Context) func(string) bool {
	return func(candidate string) bool {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			log.Warnf("[Upload] slug 占用检查失败, candidate: %s, error: %v", candidate, err)
			return false
		}
		return exists
	}
}

func (s *fileService) shareURL(shareSlug string) string {
	return fmt.Sprintf("%s/download/%s", strings.TrimRight(s.shareCfg.BaseURL, "/"), shareSlug)
}

func (s *fileService) mapLookupError(err error) error {
	switch {
	case errors.Is(err, repository.ErrRecordExpired):
		return ErrFileExpired
	case errors.Is(err, repository.ErrRecordNotFound):
		return ErrFileNotFound
	default:
		return err
	}
}

func (s *fileService) publishEvent(ctx context.Context, task tasks.FileEventTask) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishFileEvent(ctx, task); err != nil {
		log.Warnf("[FileService] 发布生命周期事件失败, event: %s, error: %v", task.Event, err)
	}
}

func (s *fileService) publishNotification(ctx context.Context, task tasks.ShareNotificationTask) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishShareNotification(ctx, task); err != nil {
		log.Warnf("[FileService] 发布分享通知失败, fileId: %d, error: %v", task.FileID, err)
	}
}
