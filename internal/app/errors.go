package app

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrQuestionEmpty = errors.New("question is empty")
)
