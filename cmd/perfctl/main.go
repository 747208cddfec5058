// perfctl 渲染 perfkit 引擎导出的快照文件。
//
// 用法:
//
//	perfctl <命令> <snapshot.json>
//
// 命令:
//
//	report  渲染 markdown 格式的性能报告
//	csv     渲染 CSV 格式的聚合统计表
//
// 退出码:
//
//	0: 渲染成功
//	1: 快照读取或解析失败
//	2: 参数错误（缺少文件参数、未知命令等）
//
// 示例:
//
//	perfctl report /var/lib/app/metrics/metrics-2026-08-31.json
//	perfctl csv metrics-2026-08-31.json > summary.csv
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:           "perfctl",
		Usage:          "perfkit 快照渲染工具",
		Version:        fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Commands:       createCommands(),
		DefaultCommand: "help",
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，
		// 由 run() 统一处理退出码映射。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run(args []string) int {
	app := createApp()

	if err := app.Run(context.Background(), args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if _, ok := err.(cli.ExitCoder); ok {
			return 2
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}

	return 0
}
