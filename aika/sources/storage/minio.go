package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"aika/aika/chat"
	"aika/aika/config"
	"aika/aika/utils/logging"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// TranscriptExport is the object written per conversation: the finalized
// bubbles plus a little envelope for provenance.
type TranscriptExport struct {
	SessionID      string             `json:"session_id"`
	ConversationID string             `json:"conversation_id"`
	ExportedAt     time.Time          `json:"exported_at"`
	Messages       []chat.ChatMessage `json:"messages"`
}

type MinIOClient struct {
	client *minio.Client
	bucket string
}

func NewMinIOClient(cfg config.Config) (*MinIOClient, error) {
	bucket := cfg.MinIOBucket
	client, err := minio.New(
		cfg.MinIOEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: false,
		},
	)
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &MinIOClient{client: client, bucket: bucket}, nil
}

// UploadTranscript writes one conversation export and returns its object
// key.
func (m *MinIOClient) UploadTranscript(ctx context.Context, sessionID, conversationID string, msgs []chat.ChatMessage) (string, error) {
	defer logging.LogDuration(ctx, "UploadTranscript")()
	key := filepath.Join("transcripts", sessionID, fmt.Sprintf("%s.json", conversationID))

	obj := TranscriptExport{
		SessionID:      sessionID,
		ConversationID: conversationID,
		ExportedAt:     time.Now(),
		Messages:       msgs,
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}

	_, err = m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", err
	}
	return key, nil
}

// GetTranscript reads back one exported conversation.
func (m *MinIOClient) GetTranscript(ctx context.Context, key string) (*TranscriptExport, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	var export TranscriptExport
	if err := json.NewDecoder(obj).Decode(&export); err != nil {
		return nil, err
	}
	return &export, nil
}
