// Package slug 提供分享链接所用的随机短标识符生成。
package slug

import (
	cryptorand "crypto/rand"
	"errors"
	"math/rand"
)

// alphabet 是分享标识符的固定字符表：62 个大小写字母与数字。
// 所有字符都是 URL 安全的，标识符可以直接嵌入分享路径。
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength 是分享标识符的默认长度。
const DefaultLength = 12

// maxUniqueAttempts 限制 GenerateUnique 的重试次数，避免谓词恒为真时陷入死循环。
const maxUniqueAttempts = 1000

// ErrExhausted 表示在重试上限内未能生成未被占用的标识符。
var ErrExhausted = errors.New("slug generation exhausted retry budget")

// Generate 生成一个长度为 length 的随机标识符，每个字符从字符表中均匀抽取。
// 优先使用加密安全的随机源；读取失败时回退到 math/rand。
// 注意：回退路径不具备加密强度，仅作为极端情况下的兜底。
func Generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}

	buf := make([]byte, length)
	if _, err := cryptorand.Read(buf); err == nil {
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(buf)
	}

	// 非加密安全的兜底路径
	for i := range buf {
		buf[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(buf)
}

// GenerateUnique 反复生成候选标识符，直到 exists 返回 false。
// exists 之外不依赖任何共享状态，可以在并发上传中安全调用；
// 这里的检查是乐观的，存储层插入时的唯一性校验才是最终保障。
func GenerateUnique(length int, exists func(string) bool) (string, error) {
	for i := 0; i < maxUniqueAttempts; i++ {
		candidate := Generate(length)
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}
