package store

import (
	"context"
	"fmt"
	"strings"
)

// DefaultThemeKey holds the theme preference as a raw string ("light" or "dark").
const DefaultThemeKey = "todo.theme"

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

func ParseTheme(s string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dark":
		return ThemeDark, nil
	case "light":
		return ThemeLight, nil
	default:
		return "", fmt.Errorf("invalid theme: %q (expected light|dark)", s)
	}
}

func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// LoadTheme reads the theme preference. Anything other than "light" is dark.
func LoadTheme(ctx context.Context, blobs Blobs, key string) (Theme, error) {
	if key == "" {
		key = DefaultThemeKey
	}
	b, ok, err := blobs.Load(ctx, key)
	if err != nil {
		return ThemeDark, fmt.Errorf("load theme: %w", err)
	}
	if ok && strings.TrimSpace(string(b)) == string(ThemeLight) {
		return ThemeLight, nil
	}
	return ThemeDark, nil
}

func SaveTheme(ctx context.Context, blobs Blobs, key string, t Theme) error {
	if key == "" {
		key = DefaultThemeKey
	}
	if t != ThemeLight {
		t = ThemeDark
	}
	if err := blobs.Save(ctx, key, []byte(t)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// ToggleTheme flips and persists the stored preference, returning the new value.
func ToggleTheme(ctx context.Context, blobs Blobs, key string) (Theme, error) {
	cur, err := LoadTheme(ctx, blobs, key)
	if err != nil {
		return cur, err
	}
	next := cur.Toggle()
	if err := SaveTheme(ctx, blobs, key, next); err != nil {
		return cur, err
	}
	return next, nil
}
