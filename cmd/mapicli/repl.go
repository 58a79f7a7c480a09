package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/peterh/liner"

	"github.com/mapidb/mapi-go"
)

var (
	sqlLexer     chroma.Lexer
	sqlFormatter chroma.Formatter
	sqlStyle     *chroma.Style
)

func init() {
	sqlLexer = lexers.Get("sql")
	sqlFormatter = formatters.Get("terminal256")
	sqlStyle = styles.Get("monokai")
}

// highlightSQL returns sql with ANSI syntax highlighting applied, or sql
// unchanged if tokenising or formatting fails.
func highlightSQL(sql string) string {
	if sqlLexer == nil || sqlFormatter == nil || sqlStyle == nil {
		return sql
	}
	iter, err := sqlLexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}
	var buf bytes.Buffer
	if err := sqlFormatter.Format(&buf, sqlStyle, iter); err != nil {
		return sql
	}
	return strings.TrimRight(buf.String(), "\n")
}

func runREPL(ctx context.Context, pool *mapi.Pool) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("mapicli — type SQL, or \\q to quit")

	for {
		input, err := line.Prompt("mapi> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		sql := strings.TrimSpace(input)
		if sql == "" {
			continue
		}
		if sql == `\q` || sql == `\quit` {
			return nil
		}
		line.AppendHistory(input)

		fmt.Println(highlightSQL(sql))
		if err := runOne(ctx, pool, sql); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func runOne(ctx context.Context, pool *mapi.Pool, sql string) error {
	conn, err := pool.Checkout(ctx)
	if err != nil {
		return err
	}
	defer pool.Checkin(conn)

	res, err := conn.Query(sql)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}

func printResult(res *mapi.Result) {
	switch res.Kind {
	case mapi.ResultRows:
		fmt.Println(strings.Join(res.Columns, "\t"))
		for _, row := range res.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = fmt.Sprintf("%v", v)
			}
			fmt.Println(strings.Join(cells, "\t"))
		}
		fmt.Printf("(%d rows)\n", len(res.Rows))
	case mapi.ResultUpsert:
		if res.LastID != nil {
			fmt.Printf("%d rows affected, last id %d\n", res.RowCount, *res.LastID)
		} else {
			fmt.Printf("%d rows affected\n", res.RowCount)
		}
	case mapi.ResultMeta:
		fmt.Println("ok")
	case mapi.ResultTxState:
		fmt.Printf("autocommit=%v\n", res.AutoCommit)
	}
}
