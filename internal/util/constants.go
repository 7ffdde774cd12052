package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeImage       = "image/"
	MimeOctetStream = "application/octet-stream"

	MaxImageUploadSize = 10 << 20
)

var AllowedImageTypes = []string{MimeImage}

// 对外提示信息
const (
	MsgMaxAttempts = "max attempts"
	MsgCorrect     = "correct"
	MsgIncorrect   = "incorrect"
	MsgPending     = "submitted for review"
	MsgNoChange    = "no change"
)
