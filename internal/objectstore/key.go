package objectstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// keyRandomBytes はストレージキーに付与するランダム部分のバイト数。
	keyRandomBytes = 16
	// fallbackFileName はサニタイズ後に空になったファイル名の代替。
	fallbackFileName = "upload.bin"
)

// BuildStorageKey はランの写真用ストレージキーを生成する。
// 形式: runs/{runID}/photos/{32桁の16進乱数}-{サニタイズ済みファイル名}
func BuildStorageKey(runID, fileName string) (string, error) {
	b := make([]byte, keyRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("ストレージキーの生成に失敗しました: %w", err)
	}
	return fmt.Sprintf("runs/%s/photos/%s-%s", runID, hex.EncodeToString(b), SanitizeFileName(fileName)), nil
}

// SanitizeFileName は [A-Za-z0-9_.-] 以外の文字を '_' に置換する。
// 結果が空の場合は "upload.bin" を返す。
func SanitizeFileName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return fallbackFileName
	}
	return sb.String()
}
