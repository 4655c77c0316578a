package service

import (
	"fmt"
	"math"
	"time"
	"unicode/utf16"
)

// 图片条目的拍摄时间与地点是按文件名和修改时间生成的模拟值，不读取真实 EXIF.

const (
	// DateLayout 列表中 lastModified 的格式.
	DateLayout = "1/2/2006"
	// DateTimeLayout 图片 captureDate 的格式.
	DateTimeLayout = "1/2/2006, 3:04:05 PM"
)

var mockLocations = []string{
	"Paris, France",
	"Kyoto, Japan",
	"New York, USA",
	"Cairo, Egypt",
	"Sydney, Australia",
}

// SizeLabel 字节数转为 "x.xx MB".
func SizeLabel(size int64) string {
	return fmt.Sprintf("%.2f MB", float64(size)/1024/1024)
}

// MockLocation 由文件名哈希选出一个固定地点，同名文件结果恒定.
//
// 哈希按 UTF-16 码元累加 c + ((h << 5) - h)，移位时 h 截断为 int32，
// 累加值本身不截断，与浏览器端生成的旧数据保持一致.
func MockLocation(name string) string {
	var h float64

	for _, c := range utf16.Encode([]rune(name)) {
		shifted := toInt32(h) << 5
		h = float64(c) + (float64(shifted) - h)
	}

	idx := int(math.Abs(math.Mod(h, float64(len(mockLocations)))))

	return mockLocations[idx]
}

// toInt32 按 32 位有符号整数截断.
func toInt32(f float64) int32 {
	return int32(uint32(int64(f)))
}

// CaptureDate 图片的模拟拍摄时间.
func CaptureDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Local().Format(DateTimeLayout)
}

// FormatDate 格式化 lastModified.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Local().Format(DateLayout)
}
