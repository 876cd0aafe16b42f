package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"classifier-agent/internal/domain"
)

const (
	attrUserKey       = "userKey"
	attrTurnTimestamp = "turnTimestamp"
)

// dynamodbAPI is the minimal DynamoDB interface required by Store.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store wraps a DynamoDB table holding conversation turns keyed by
// (userKey, turnTimestamp).
type Store struct {
	api       dynamodbAPI
	tableName string
}

// nowFn is swapped in tests to pin window and expiry arithmetic.
var nowFn = time.Now

// New creates a new conversation Store.
func New(api dynamodbAPI, tableName string) (*Store, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Store{api: api, tableName: tableName}, nil
}

// RecentWindow returns the user's turns inside [now-window, now], newest
// first, at most maxCount. Records whose expireAt has passed are filtered
// out even if DynamoDB TTL has not reaped them yet. No history is not an
// error: an empty slice is returned.
func (s *Store) RecentWindow(ctx context.Context, userKey string, window time.Duration, maxCount int) ([]domain.ConversationRecord, error) {
	if strings.TrimSpace(userKey) == "" {
		return nil, errors.New("repository: RecentWindow: user key is required")
	}
	if maxCount <= 0 {
		return nil, errors.New("repository: RecentWindow: max count must be positive")
	}

	now := nowFn()
	cutoffMS := now.Add(-window).UnixMilli()

	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("userKey = :user AND turnTimestamp >= :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user":   &types.AttributeValueMemberS{Value: userKey},
			":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoffMS, 10)},
		},
		// Read newest first so Limit keeps the most recent turns.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(maxCount)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: RecentWindow query: %w", err)
	}

	nowUnix := now.Unix()
	recs := make([]domain.ConversationRecord, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := itemToRecord(item)
		if err != nil {
			return nil, fmt.Errorf("repository: RecentWindow unmarshal: %w", err)
		}
		if rec.ExpireAt <= nowUnix {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Append inserts one conversation record. It is a blind single-record
// insert: no read precedes it, and the condition expression rejects a
// duplicate (userKey, turnTimestamp) identity.
func (s *Store) Append(ctx context.Context, rec domain.ConversationRecord) error {
	if rec.UserKey == "" {
		return errors.New("repository: Append: user key is required")
	}
	if rec.TurnTimestamp <= 0 {
		return errors.New("repository: Append: turn timestamp is required")
	}
	if rec.ExpireAt <= 0 {
		return errors.New("repository: Append: expireAt is required")
	}

	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                recordItem(rec),
		ConditionExpression: aws.String("attribute_not_exists(userKey) AND attribute_not_exists(turnTimestamp)"),
	})
	if err != nil {
		return fmt.Errorf("repository: Append: %w", err)
	}
	return nil
}

// PurgeOlderThan deletes the user's records with turnTimestamp before
// cutoffMS and returns how many were removed. TTL on expireAt is the
// primary expiry mechanism; this is a manual compaction path.
func (s *Store) PurgeOlderThan(ctx context.Context, userKey string, cutoffMS int64) (int, error) {
	if strings.TrimSpace(userKey) == "" {
		return 0, errors.New("repository: PurgeOlderThan: user key is required")
	}

	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("userKey = :user AND turnTimestamp < :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user":   &types.AttributeValueMemberS{Value: userKey},
			":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoffMS, 10)},
		},
		ProjectionExpression: aws.String("userKey, turnTimestamp"),
	})
	if err != nil {
		return 0, fmt.Errorf("repository: PurgeOlderThan query: %w", err)
	}

	deleted := 0
	for _, item := range out.Items {
		key := map[string]types.AttributeValue{
			attrUserKey:       item[attrUserKey],
			attrTurnTimestamp: item[attrTurnTimestamp],
		}
		if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       key,
		}); err != nil {
			return deleted, fmt.Errorf("repository: PurgeOlderThan delete: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

func recordItem(rec domain.ConversationRecord) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		attrUserKey:       &types.AttributeValueMemberS{Value: rec.UserKey},
		attrTurnTimestamp: &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.TurnTimestamp, 10)},
		"requestText":     &types.AttributeValueMemberS{Value: rec.RequestText},
		"responseText":    &types.AttributeValueMemberS{Value: rec.ResponseText},
		"classification":  &types.AttributeValueMemberS{Value: string(rec.PrimaryCategory)},
		"language":        &types.AttributeValueMemberS{Value: string(rec.LanguageTag)},
		"isFollowUp":      &types.AttributeValueMemberBOOL{Value: rec.IsFollowUp},
		"expireAt":        &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.ExpireAt, 10)},
	}
	if rec.SubCategory != "" {
		item["subClassification"] = &types.AttributeValueMemberS{Value: string(rec.SubCategory)}
	}
	if rec.SubjectTag != "" {
		item["subject"] = &types.AttributeValueMemberS{Value: string(rec.SubjectTag)}
	}
	return item
}

func itemToRecord(item map[string]types.AttributeValue) (domain.ConversationRecord, error) {
	userKey, err := strAttr(item, attrUserKey)
	if err != nil {
		return domain.ConversationRecord{}, err
	}
	ts, err := intAttr(item, attrTurnTimestamp)
	if err != nil {
		return domain.ConversationRecord{}, err
	}
	requestText, err := strAttr(item, "requestText")
	if err != nil {
		return domain.ConversationRecord{}, err
	}
	responseText, _ := strAttr(item, "responseText") // allow empty
	classification, err := strAttr(item, "classification")
	if err != nil {
		return domain.ConversationRecord{}, err
	}
	language, _ := strAttr(item, "language")
	subClassification, _ := strAttr(item, "subClassification")
	subject, _ := strAttr(item, "subject")
	expireAt, err := intAttr(item, "expireAt")
	if err != nil {
		return domain.ConversationRecord{}, err
	}

	return domain.ConversationRecord{
		UserKey:         userKey,
		TurnTimestamp:   ts,
		RequestText:     requestText,
		ResponseText:    responseText,
		PrimaryCategory: domain.Category(classification),
		SubCategory:     domain.SubCategory(subClassification),
		SubjectTag:      domain.Subject(subject),
		LanguageTag:     domain.Language(language),
		IsFollowUp:      boolAttr(item, "isFollowUp"),
		ExpireAt:        expireAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func boolAttr(item map[string]types.AttributeValue, key string) bool {
	v, ok := item[key]
	if !ok {
		return false
	}
	b, ok := v.(*types.AttributeValueMemberBOOL)
	if !ok {
		return false
	}
	return b.Value
}
