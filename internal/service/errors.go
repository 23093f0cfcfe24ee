package service

import "errors"

var errNoImageStore = errors.New("image store not configured")
