package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/parquet2pg/internal/cli"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(parquet2pg.ExitPanic)
		}
	}()

	if os.Getenv("PARQUET2PG_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(parquet2pg.ExitCodeForError(err))
	}
}
