package core

import (
	"errors"
	"fmt"
)

// User-facing messages.
const (
	MsgConfigMissing    = "サーバー設定が不完全です。 (WebDAV environment variables are not set)"
	MsgEmptyBatch       = "データが空です。"
	MsgProcessingFailed = "データの処理中にエラーが発生しました。"
	MsgInvalidRequest   = "リクエストの形式が正しくありません。"
	MsgUnexpected       = "予期せぬエラーが発生しました。コンソールを確認してください。"
	MsgRateLimited      = "リクエストが多すぎます。しばらくしてから再度お試しください。"
	MsgJournalDisabled  = "送信履歴は記録されていません。"
	MsgNotFound         = "ページが見つかりません。"
)

// MsgAppended is the success message for n appended entries.
func MsgAppended(n int) string {
	return fmt.Sprintf("%d件のデータを追加しました。", n)
}

// MsgDocumentNotFound names the missing document path.
func MsgDocumentNotFound(path string) string {
	return fmt.Sprintf("スプレッドシートファイルが見つかりません: %s", path)
}

// Message returns the user-facing message for err and, for processing
// failures, the underlying description as detail.
func Message(err error) (message, detail string) {
	var nf *NotFoundError
	switch KindOf(err) {
	case KindConfiguration:
		return MsgConfigMissing, ""
	case KindInput:
		return MsgEmptyBatch, ""
	case KindNotFound:
		if errors.As(err, &nf) {
			return MsgDocumentNotFound(nf.Path), ""
		}
		return MsgDocumentNotFound(""), ""
	default:
		var pe *ProcessingError
		if errors.As(err, &pe) && pe.Err != nil {
			return MsgProcessingFailed, pe.Err.Error()
		}
		return MsgProcessingFailed, err.Error()
	}
}
