package service

import "strings"

func equalFold(a, b string) bool { return strings.EqualFold(a, b) }

func uintPtr(v uint) *uint { return &v }
