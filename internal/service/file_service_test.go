package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"swiftshare-go/internal/config"
	"swiftshare-go/internal/model"
	"swiftshare-go/internal/repository"
	"swiftshare-go/internal/service"
	"swiftshare-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
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

// stubContentStore 记录调用次数，可配置签名失败。
type stubContentStore struct {
	mu          sync.Mutex
	putCalls    int
	presigns    int
	presignFail bool
}

func (s *stubContentStore) Put(_ context.Context, _, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	return nil
}

func (s *stubContentStore) PresignDownloadURL(_ context.Context, filePath, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presigns++
	if s.presignFail {
		return "", errors.New("storage unreachable")
	}
	return "https://minio.local/presigned" + filePath, nil
}

type stubPublisher struct {
	mu            sync.Mutex
	events        []tasks.FileEventTask
	notifications []tasks.ShareNotificationTask
}

func (p *stubPublisher) PublishFileEvent(_ context.Context, task tasks.FileEventTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, task)
	return nil
}

func (p *stubPublisher) PublishShareNotification(_ context.Context, task tasks.ShareNotificationTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, task)
	return nil
}

func testShareConfig() config.ShareConfig {
	cfg := config.ShareConfig{BaseURL: "https://share.example.com"}
	cfg.ApplyDefaults()
	return cfg
}

type serviceFixture struct {
	svc       service.FileService
	repo      repository.FileRepository
	clock     *fakeClock
	content   *stubContentStore
	publisher *stubPublisher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := repository.NewMemoryFileRepository(clock.Now)
	content := &stubContentStore{}
	publisher := &stubPublisher{}
	svc := service.NewFileService(repo, content, publisher, testShareConfig(), clock.Now)
	return &serviceFixture{svc: svc, repo: repo, clock: clock, content: content, publisher: publisher}
}

func (f *serviceFixture) upload(t *testing.T, name string, size int64, mimeType string) *model.FileDescriptor {
	t.Helper()
	desc, err := f.svc.Upload(context.Background(), model.UploadInput{
		Name: name, Size: size, Type: mimeType,
	}, model.ShareData{})
	require.NoError(t, err)
	return desc
}

func TestUploadCreatesRecord(t *testing.T) {
	f := newServiceFixture(t)

	desc := f.upload(t, "report.docx", 50,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document")

	assert.NotZero(t, desc.Id)
	assert.Equal(t, "report.docx", desc.FileName)
	assert.Equal(t, int64(50), desc.FileSize)
	assert.Len(t, desc.Slug, 12)
	assert.Equal(t, 0, desc.DownloadCount)
	assert.Equal(t, "/uploads/"+desc.Slug+"_report.docx", desc.FilePath)
	// 保留期恰好 7 天
	assert.Equal(t, 7*24*time.Hour, desc.ExpirationDate.Sub(desc.UploadTimestamp))
	assert.Equal(t, f.clock.Now(), desc.UploadTimestamp)

	assert.Equal(t, 1, f.content.putCalls)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, tasks.EventFileUploaded, f.publisher.events[0].Event)
	assert.Equal(t, desc.Slug, f.publisher.events[0].Slug)
}

func TestUploadRejectedLeavesStoreUnchanged(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Upload(context.Background(), model.UploadInput{
		Name: "virus.exe", Size: 10, Type: "application/pdf",
	}, model.ShareData{})
	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))

	// 校验失败不产生记录、不写内容、不发事件
	result := f.svc.CleanupExpired(context.Background())
	assert.Equal(t, int64(0), result.RemainingCount)
	assert.Equal(t, 0, f.content.putCalls)
	assert.Empty(t, f.publisher.events)
}

func TestUploadManySlugsUnique(t *testing.T) {
	f := newServiceFixture(t)

	slugs := make(map[string]struct{})
	ids := make(map[uint]struct{})
	for i := 0; i < 50; i++ {
		desc := f.upload(t, "doc.pdf", 100, "application/pdf")
		_, dup := slugs[desc.Slug]
		assert.False(t, dup, "slug %s 重复", desc.Slug)
		slugs[desc.Slug] = struct{}{}
		_, dup = ids[desc.Id]
		assert.False(t, dup, "id %d 重复", desc.Id)
		ids[desc.Id] = struct{}{}
	}
}

func TestGetByShareSlug(t *testing.T) {
	f := newServiceFixture(t)
	desc := f.upload(t, "photo.png", 2048, "image/png")

	got, err := f.svc.GetByShareSlug(context.Background(), desc.Slug)
	require.NoError(t, err)
	assert.Equal(t, desc.Id, got.Id)
	assert.Equal(t, "photo.png", got.FileName)

	_, err = f.svc.GetByShareSlug(context.Background(), "nosuchslug00")
	assert.ErrorIs(t, err, service.ErrFileNotFound)
}

func TestGenerateShareLink(t *testing.T) {
	f := newServiceFixture(t)
	desc := f.upload(t, "notes.txt", 128, "text/plain")

	link, err := f.svc.GenerateShareLink(context.Background(), desc.Id, model.ShareData{
		RecipientEmail: "peer@example.com",
		Message:        "请查收",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://share.example.com/download/"+desc.Slug, link.ShareURL)
	assert.True(t, strings.HasSuffix(link.ShareURL, "/download/"+desc.Slug))
	assert.Equal(t, desc.ExpirationDate, link.ExpirationDate)

	// 分享字段已合并到记录
	got, err := f.svc.GetByShareSlug(context.Background(), desc.Slug)
	require.NoError(t, err)
	assert.Equal(t, "peer@example.com", got.RecipientEmail)
	assert.Equal(t, "请查收", got.Message)

	// 携带收件人时推送一条分享通知
	require.Len(t, f.publisher.notifications, 1)
	notif := f.publisher.notifications[0]
	assert.Equal(t, desc.Id, notif.FileID)
	assert.Equal(t, link.ShareURL, notif.ShareURL)
	assert.Equal(t, "peer@example.com", notif.RecipientEmail)
}

func TestGenerateShareLinkWithoutRecipient(t *testing.T) {
	f := newServiceFixture(t)
	desc := f.upload(t, "notes.txt", 128, "text/plain")

	link, err := f.svc.GenerateShareLink(context.Background(), desc.Id, model.ShareData{})
	require.NoError(t, err)
	assert.NotEmpty(t, link.ShareURL)
	assert.Empty(t, f.publisher.notifications)
}

func TestDownloadIncrementsCount(t *testing.T) {
	f := newServiceFixture(t)
	desc := f.upload(t, "video.mp4", 5*1024*1024, "video/mp4")

	for i := 1; i <= 5; i++ {
		result, err := f.svc.Download(context.Background(), desc.Id)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, i, result.DownloadCount)
		assert.Contains(t, result.DownloadURL, desc.Slug)
	}

	stats, err := f.svc.GetFileStats(context.Background(), desc.Id)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.DownloadCount)
	assert.Equal(t, 5, f.content.presigns)
}

// 传输失败不回滚已提交的下载计数。
func TestDownloadTransferFailureKeepsCount(t *testing.T) {
	f := newServiceFixture(t)
	desc := f.upload(t, "audio.mp3", 1024, "audio/mpeg")

	f.content.presignFail = true
	_, err := f.svc.Download(context.Background(), desc.Id)
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrTransferFailed)

	stats, err := f.svc.GetFileStats(context.Background(), desc.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DownloadCount)

	f.content.presignFail = false
	result, err := f.svc.Download(context.Background(), desc.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, result.DownloadCount)
}

func TestDownloadExpired(t *testing.T) {
	f := newServiceFixture(t)
	desc := f.upload(t, "old.pdf", 100, "application/pdf")

	// 恰好处于过期边界时刻的记录仍然可用
	f.clock.Advance(7 * 24 * time.Hour)
	result, err := f.svc.Download(context.Background(), desc.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DownloadCount)

	// 跨过边界后首次访问报告过期，记录随之被清除
	f.clock.Advance(time.Millisecond)
	_, err = f.svc.Download(context.Background(), desc.Id)
	assert.ErrorIs(t, err, service.ErrFileExpired)

	_, err = f.svc.Download(context.Background(), desc.Id)
	assert.ErrorIs(t, err, service.ErrFileNotFound)
}

func TestGetByShareSlugExpired(t *testing.T) {
	f := newServiceFixture(t)
	desc := f.upload(t, "old.txt", 10, "text/plain")

	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err := f.svc.GetByShareSlug(context.Background(), desc.Slug)
	assert.ErrorIs(t, err, service.ErrFileExpired)

	_, err = f.svc.GetByShareSlug(context.Background(), desc.Slug)
	assert.ErrorIs(t, err, service.ErrFileNotFound)
}

func TestCleanupExpired(t *testing.T) {
	f := newServiceFixture(t)
	old1 := f.upload(t, "a.txt", 10, "text/plain")
	old2 := f.upload(t, "b.txt", 10, "text/plain")

	f.clock.Advance(7*24*time.Hour + time.Second)
	fresh := f.upload(t, "c.txt", 10, "text/plain")

	result := f.svc.CleanupExpired(context.Background())
	assert.Equal(t, int64(2), result.RemovedCount)
	assert.Equal(t, int64(1), result.RemainingCount)

	// 幂等：再次清理没有可删对象
	again := f.svc.CleanupExpired(context.Background())
	assert.Equal(t, int64(0), again.RemovedCount)
	assert.Equal(t, int64(1), again.RemainingCount)

	_, err := f.svc.GetByShareSlug(context.Background(), old1.Slug)
	assert.ErrorIs(t, err, service.ErrFileNotFound)
	_, err = f.svc.GetByShareSlug(context.Background(), old2.Slug)
	assert.ErrorIs(t, err, service.ErrFileNotFound)
	_, err = f.svc.GetByShareSlug(context.Background(), fresh.Slug)
	assert.NoError(t, err)

	// 仅在确有删除时发布清理事件
	var swept int
	for _, ev := range f.publisher.events {
		if ev.Event == tasks.EventFilesSwept {
			swept++
			assert.Equal(t, int64(2), ev.RemovedCount)
		}
	}
	assert.Equal(t, 1, swept)
}

func TestConcurrentDownloads(t *testing.T) {
	f := newServiceFixture(t)
	desc := f.upload(t, "popular.zip", 1024, "application/zip")

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := f.svc.Download(context.Background(), desc.Id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := f.svc.GetFileStats(context.Background(), desc.Id)
	require.NoError(t, err)
	assert.Equal(t, workers, stats.DownloadCount)
}
