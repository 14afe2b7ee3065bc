package registry

import "errors"

var (
	ErrDuplicateMedia   = errors.New("media already in public catalog")
	ErrNotFound         = errors.New("file not found")
	ErrAlreadyFavorited = errors.New("file already favorited")
)
