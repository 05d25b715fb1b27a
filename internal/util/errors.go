package util

import "errors"

var (
	ErrTrainingNotFound  = errors.New("training not found")
	ErrQuestNotFound     = errors.New("quest not found")
	ErrObjectiveNotFound = errors.New("objective not found")
	ErrLevelNotFound     = errors.New("level not found")
	ErrInvalidPoints     = errors.New("points must be a positive integer")
	ErrTitleRequired     = errors.New("title is required")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrLoginDisabled     = errors.New("admin login is not configured")
	ErrInvalidYouTubeURL = errors.New("invalid YouTube URL")
	ErrInvalidVideo      = errors.New("video must be of type youtube or server with a url")
	ErrInvalidVideoFile  = errors.New("file must be a video")
	ErrVideoTooLarge     = errors.New("video file is too large")
	ErrInvalidImport     = errors.New("invalid training import")
)
