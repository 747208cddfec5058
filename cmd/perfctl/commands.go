package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/perfkit/pkg/report/xreport"
)

// usageError 表示参数错误，映射为退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "report",
			Aliases:   []string{"r"},
			Usage:     "渲染 markdown 格式的性能报告",
			ArgsUsage: "<snapshot.json>",
			Action: func(_ context.Context, cmd *cli.Command) error {
				return withSnapshotArg(cmd, cmdReport)
			},
		},
		{
			Name:      "csv",
			Aliases:   []string{"c"},
			Usage:     "渲染 CSV 格式的聚合统计表",
			ArgsUsage: "<snapshot.json>",
			Action: func(_ context.Context, cmd *cli.Command) error {
				return withSnapshotArg(cmd, cmdCSV)
			},
		},
	}
}

// withSnapshotArg 校验快照文件参数后调用渲染函数。
func withSnapshotArg(cmd *cli.Command, fn func(path string, w io.Writer) error) error {
	path := cmd.Args().First()
	if path == "" {
		return &usageError{msg: "missing snapshot file argument"}
	}
	return fn(path, os.Stdout)
}

// cmdReport 渲染 markdown 报告。
func cmdReport(path string, w io.Writer) error {
	snap, err := loadSnapshot(path)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, xreport.Markdown(snap))
	return err
}

// cmdCSV 渲染 CSV 表。
func cmdCSV(path string, w io.Writer) error {
	snap, err := loadSnapshot(path)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, xreport.CSV(snap))
	return err
}

// loadSnapshot 读取并解析快照文件。
func loadSnapshot(path string) (xreport.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return xreport.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap xreport.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return xreport.Snapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}
