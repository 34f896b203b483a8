// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"

	"swiftshare-go/internal/config"
	"swiftshare-go/pkg/log"
	"swiftshare-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// NotificationProcessor 是分享通知任务的处理接口，由消费者在收到消息后调用。
type NotificationProcessor interface {
	Process(ctx context.Context, task tasks.ShareNotificationTask) error
}

// Producer 封装了事件与通知两个主题的写入端。
type Producer struct {
	events        *kafka.Writer
	notifications *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{
		events: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers),
			Topic:    cfg.EventsTopic,
			Balancer: &kafka.LeastBytes{},
		},
		notifications: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers),
			Topic:    cfg.NotificationsTopic,
			Balancer: &kafka.LeastBytes{},
		},
	}
	log.Info("Kafka 生产者初始化成功")
	return p
}

// PublishFileEvent 发送一条文件生命周期事件。
func (p *Producer) PublishFileEvent(ctx context.Context, task tasks.FileEventTask) error {
	return p.write(ctx, p.events, task)
}

// PublishShareNotification 发送一条分享通知任务。
func (p *Producer) PublishShareNotification(ctx context.Context, task tasks.ShareNotificationTask) error {
	return p.write(ctx, p.notifications, task)
}

func (p *Producer) write(ctx context.Context, w *kafka.Writer, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{Value: data})
}

// Close 关闭所有写入端。
func (p *Producer) Close() {
	_ = p.events.Close()
	_ = p.notifications.Close()
}

// StartNotificationConsumer 启动一个 Kafka 消费者来处理分享通知任务。
// 循环在 ctx 取消或读取出错时退出。
func StartNotificationConsumer(ctx context.Context, cfg config.KafkaConfig, processor NotificationProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.NotificationsTopic,
		GroupID:  "swiftshare-go-notifier",
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	defer r.Close()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.NotificationsTopic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		var task tasks.ShareNotificationTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		if err := processor.Process(ctx, task); err != nil {
			log.Errorf("处理分享通知失败, fileId: %d, error: %v", task.FileID, err)
			// 通知是尽力而为的投递，失败也提交，不无限重试
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交消息失败: %v", err)
		}
	}
}
