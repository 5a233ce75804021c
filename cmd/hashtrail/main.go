// Command hashtrail はランのRSVP・出席・写真アップロードを扱うAPIサーバーとワーカー。
//
// 使い方:
//
//	hashtrail [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/hashtrail/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hashtrail: %v\n", err)
		os.Exit(1)
	}
}
