package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// GenerateHash derives two keys for a filtered query: a search key, stable
// across time so repeated identical queries find cached results, and a
// storage key carrying a timestamp so stored entries stay distinguishable.
func GenerateHash(resourceType string, filters map[string]string, page, pageSize int) (string, string) {
	timestamp := time.Now().Unix()

	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	query := fmt.Sprintf("resource=%s&page=%d&page_size=%d", resourceType, page, pageSize)
	for _, key := range keys {
		query += fmt.Sprintf("&%s=%s", key, filters[key])
	}

	searchHash := sha256.Sum256([]byte(query))

	// The storage key embeds the search hash so FindMatchingFile's scan on
	// the search hash locates entries stored at any time
	searchKey := fmt.Sprintf("%s:%s", resourceType, hex.EncodeToString(searchHash[:]))
	storageKey := fmt.Sprintf("%s:%d", searchKey, timestamp)

	return searchKey, storageKey
}

// FindMatchingFile scans for a cached file path stored under any key
// containing the search hash. Returns redis.Nil when nothing matches.
func FindMatchingFile(ctx context.Context, rdb *redis.Client, searchHash string) (string, error) {
	iter := rdb.Scan(ctx, 0, fmt.Sprintf("*%s*", searchHash), 1).Iterator()
	for iter.Next(ctx) {
		filePath, err := rdb.Get(ctx, iter.Val()).Result()
		if err == nil {
			return filePath, nil
		}
	}
	if err := iter.Err(); err != nil {
		return "", err
	}
	return "", redis.Nil
}
