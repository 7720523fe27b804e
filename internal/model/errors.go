package model

import "errors"

// Стандартные ошибки приложения
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found")

	// User & Authentication Errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this username already exists")
	ErrEmailAlreadyExists = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden") // Authenticated, but lacks permission

	// Story & Branching Errors
	ErrChoiceAlreadyTaken   = errors.New("choice has already been taken")
	ErrStoryEnded           = errors.New("story has already ended")
	ErrConfirmationRequired = errors.New("confirmation required")

	// Generation Errors
	ErrGenerationFailed = errors.New("story generation failed")
	ErrAPIKeyMissing    = errors.New("AI API key is not configured")

	// General Request Errors
	ErrInvalidInput = errors.New("invalid input data")
)
