package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type transcribeResult struct {
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
	Language string `json:"language"`
	Filename string `json:"filename"`
	DBStatus string `json:"db_status"`
}

// printOutput 按指定格式输出转写结果
func printOutput(w io.Writer, format string, data []byte) error {
	if format == "json" {
		return printJSON(w, data)
	}

	var res transcribeResult
	if err := json.Unmarshal(data, &res); err != nil {
		// 非 JSON 数据直接输出
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintf(w, "file:     %s\n", res.Filename)
	fmt.Fprintf(w, "language: %s\n", res.Language)
	fmt.Fprintf(w, "database: %s\n\n", res.DBStatus)
	for _, seg := range res.Segments {
		fmt.Fprintf(w, "[%s - %s] %s\n", timestamp(seg.Start), timestamp(seg.End), seg.Text)
	}
	return nil
}

func printJSON(w io.Writer, data []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintln(w, out.String())
	return err
}

// timestamp formats seconds as HH:MM:SS.mmm.
func timestamp(seconds float64) string {
	ms := int64(seconds*1000 + 0.5)
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}
