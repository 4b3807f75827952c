package util

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
)

// ANSI 颜色
const (
	ColorReset  = "\x1b[0m"
	ColorRed    = "\x1b[1;31m"
	ColorGreen  = "\x1b[1;32m"
	ColorYellow = "\x1b[1;33m"
	ColorBlue   = "\x1b[1;34m"
	ColorCyan   = "\x1b[1;36m"
)

var colors = map[string]string{
	"red":    ColorRed,
	"green":  ColorGreen,
	"yellow": ColorYellow,
	"blue":   ColorBlue,
	"cyan":   ColorCyan,
}

// colorCode 未知颜色名返回 ColorReset
func colorCode(name string) string {
	if c, ok := colors[name]; ok {
		return c
	}
	return ColorReset
}

// PrintBanner 打印整体统一颜色的 ASCII banner 及一行启动摘要
func PrintBanner(w io.Writer, text, color, summary string) {
	fig := figure.NewFigure(text, "", true)
	ansiColor := colorCode(color)
	for _, line := range fig.Slicify() {
		_, _ = fmt.Fprintln(w, ansiColor+line+ColorReset)
	}
	if summary != "" {
		_, _ = fmt.Fprintln(w, summary)
	}
}
