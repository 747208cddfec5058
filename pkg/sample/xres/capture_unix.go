//go:build unix

package xres

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// getrusage 系统调用函数变量，支持测试中 mock 替换以覆盖错误路径。
var getrusage = unix.Getrusage

// captureOS 填充 Unix 平台的 CPU 时间与 RSS。
func captureOS(s *Sample) error {
	var ru unix.Rusage
	if err := getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return fmt.Errorf("xres: getrusage RUSAGE_SELF: %w", err)
	}

	s.CPUUser = timevalSeconds(ru.Utime)
	s.CPUSystem = timevalSeconds(ru.Stime)
	s.RSS = maxRSSBytes(ru.Maxrss)
	return nil
}

// timevalSeconds 将 Timeval 转换为秒。
func timevalSeconds(tv unix.Timeval) float64 {
	return float64(tv.Sec) + float64(tv.Usec)/1e6
}

// maxRSSBytes 将 getrusage 的 Maxrss 归一化为字节。
// Linux 报告 KB，Darwin 报告字节，其余 Unix 按 KB 处理。
func maxRSSBytes(maxrss int64) uint64 {
	if maxrss < 0 {
		return 0
	}
	if runtime.GOOS == "darwin" {
		return uint64(maxrss)
	}
	return uint64(maxrss) * 1024
}
