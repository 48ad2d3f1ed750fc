package app

import (
	"fmt"
	"strings"
)

// Command はfeedbackhubバイナリのサブコマンド。
type Command string

const (
	// CommandServe はAPIサーバーを起動する。引数なしの場合もこれになる。
	CommandServe Command = "serve"
	// CommandMigrate はスキーマを最新まで適用して終了する。composeのmigrateサービスが使う。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のAPIの /health を叩いて終了する。
	// シェルのないdistrolessイメージのHEALTHCHECKから呼ばれる。
	CommandHealthcheck Command = "healthcheck"
)

// knownCommands はParseCommandが受け付けるサブコマンド。
var knownCommands = []Command{CommandServe, CommandMigrate, CommandHealthcheck}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。2つ目以降の引数は無視する。
// 引数が空の場合はCommandServeを返す。
// 未知のサブコマンドはエラーにし、APIサーバーは起動しない。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	for _, c := range knownCommands {
		if args[0] == string(c) {
			return c, nil
		}
	}

	names := make([]string, len(knownCommands))
	for i, c := range knownCommands {
		names[i] = string(c)
	}
	return "", fmt.Errorf("unknown command %q (available: %s)", args[0], strings.Join(names, ", "))
}
