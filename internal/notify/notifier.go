// Package notify 实现分享通知任务的消费端处理逻辑。
package notify

import (
	"context"

	"swiftshare-go/pkg/log"
	"swiftshare-go/pkg/tasks"
)

// Notifier 消费分享通知任务并投递给收件人。
// 当前仅做结构化日志投递，接入邮件网关时替换 Process 的实现即可。
type Notifier struct{}

// NewNotifier 创建一个新的 Notifier 实例。
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Process 处理一条分享通知任务。
func (n *Notifier) Process(_ context.Context, task tasks.ShareNotificationTask) error {
	log.Infow("投递分享通知",
		"fileId", task.FileID,
		"fileName", task.FileName,
		"recipientEmail", task.RecipientEmail,
		"shareUrl", task.ShareURL,
		"expirationDate", task.ExpirationDate,
		"message", task.Message,
	)
	return nil
}
