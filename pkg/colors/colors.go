// Package colors handles the hex colors that tag split groups: validating
// user input, handing out palette colors and picking readable text.
package colors

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidColor = errors.New("invalid hex color")

// Normalize accepts "#rgb", "#rrggbb" or the same without '#', and returns
// the lowercase "#rrggbb" form.
func Normalize(color string) (string, error) {
	hex := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(color), "#"))
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, color)
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, color)
	}
	return "#" + hex, nil
}

// Pick returns the first palette color not in used. When every color is
// taken it cycles through the palette by len(used). Invalid palette entries
// are skipped; the result is always a normalized color.
func Pick(palette []string, used []string) string {
	valid := make([]string, 0, len(palette))
	for _, c := range palette {
		if n, err := Normalize(c); err == nil {
			valid = append(valid, n)
		}
	}
	if len(valid) == 0 {
		return "#3498db"
	}
	taken := make(map[string]bool, len(used))
	for _, c := range used {
		if n, err := Normalize(c); err == nil {
			taken[n] = true
		}
	}
	for _, n := range valid {
		if !taken[n] {
			return n
		}
	}
	return valid[len(used)%len(valid)]
}

// Luminance is the WCAG relative luminance, 0 for black and 1 for white.
// Invalid colors report 0.
func Luminance(color string) float64 {
	r, g, b, ok := rgb(color)
	if !ok {
		return 0
	}
	return 0.2126*linear(r) + 0.7152*linear(g) + 0.0722*linear(b)
}

func linear(v int64) float64 {
	c := float64(v) / 255
	if c <= 0.03928 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// ContrastRatio is the WCAG contrast ratio between two colors, 1 to 21.
func ContrastRatio(a, b string) float64 {
	la, lb := Luminance(a), Luminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// TextColor returns black or white, whichever reads better on bg.
func TextColor(bg string) string {
	if ContrastRatio("#000000", bg) >= ContrastRatio("#ffffff", bg) {
		return "#000000"
	}
	return "#ffffff"
}

// Shade moves color towards white for amount > 0 and towards black for
// amount < 0. amount is clamped to [-1, 1]; invalid colors are returned as is.
func Shade(color string, amount float64) string {
	r, g, b, ok := rgb(color)
	if !ok {
		return color
	}
	amount = math.Max(-1, math.Min(1, amount))
	shift := func(v int64) int64 {
		if amount >= 0 {
			return v + int64(float64(255-v)*amount)
		}
		return int64(float64(v) * (1 + amount))
	}
	return fmt.Sprintf("#%02x%02x%02x", shift(r), shift(g), shift(b))
}

func rgb(color string) (r, g, b int64, ok bool) {
	hex, err := Normalize(color)
	if err != nil {
		return 0, 0, 0, false
	}
	v, _ := strconv.ParseInt(hex[1:], 16, 64)
	return v >> 16 & 0xff, v >> 8 & 0xff, v & 0xff, true
}
