package service_test

import (
	"testing"
	"time"

	"github.com/yeisme/mediavault/pkg/internal/service"
)

// TestSizeLabel 测试大小标签.
func TestSizeLabel(t *testing.T) {
	tests := map[int64]string{
		0:               "0.00 MB",
		2 * 1024 * 1024: "2.00 MB",
		1536 * 1024:     "1.50 MB",
		5000:            "0.00 MB",
	}

	for in, want := range tests {
		if got := service.SizeLabel(in); got != want {
			t.Errorf("SizeLabel(%d) = %q, want %q", in, got, want)
		}
	}
}

// TestMockLocation 测试模拟地点与旧数据一致且结果稳定.
func TestMockLocation(t *testing.T) {
	tests := map[string]string{
		"":   "Paris, France",
		"a":  "New York, USA", // 97 % 5 = 2
		"ab": "Paris, France", // 98 + (97<<5) - 97 = 3105
	}

	for in, want := range tests {
		if got := service.MockLocation(in); got != want {
			t.Errorf("MockLocation(%q) = %q, want %q", in, got, want)
		}
	}

	long := "a-very-long-file-name-that-overflows-32-bits-many-times.jpeg"
	if service.MockLocation(long) != service.MockLocation(long) {
		t.Error("MockLocation is not deterministic")
	}
}

// TestDateFormats 测试日期格式.
func TestDateFormats(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.Local)

	if got := service.FormatDate(ts); got != "3/5/2024" {
		t.Errorf("FormatDate = %q", got)
	}

	if got := service.CaptureDate(ts); got != "3/5/2024, 2:07:09 PM" {
		t.Errorf("CaptureDate = %q", got)
	}

	if service.FormatDate(time.Time{}) != "" || service.CaptureDate(time.Time{}) != "" {
		t.Error("zero time should format as empty")
	}
}
