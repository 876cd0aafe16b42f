package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"classifier-agent/internal/domain"
)

type fakeDynamo struct {
	putErr       error
	queryOut     *dynamodb.QueryOutput
	queryErr     error
	deleteErr    error
	lastPutInput *dynamodb.PutItemInput
	lastQueryIn  *dynamodb.QueryInput
	deleteCalls  []*dynamodb.DeleteItemInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQueryIn = in
	return f.queryOut, f.queryErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deleteCalls = append(f.deleteCalls, in)
	return &dynamodb.DeleteItemOutput{}, f.deleteErr
}

func pinNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := nowFn
	nowFn = func() time.Time { return at }
	t.Cleanup(func() { nowFn = prev })
}

func makeRecordItem(userKey string, ts int64, requestText string, expireAt int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userKey":        &types.AttributeValueMemberS{Value: userKey},
		"turnTimestamp":  &types.AttributeValueMemberN{Value: strconv.FormatInt(ts, 10)},
		"requestText":    &types.AttributeValueMemberS{Value: requestText},
		"responseText":   &types.AttributeValueMemberS{Value: "answer"},
		"classification": &types.AttributeValueMemberS{Value: "subject_related"},
		"language":       &types.AttributeValueMemberS{Value: "English"},
		"isFollowUp":     &types.AttributeValueMemberBOOL{Value: false},
		"expireAt":       &types.AttributeValueMemberN{Value: strconv.FormatInt(expireAt, 10)},
	}
}

func mustNewStore(t *testing.T, db *fakeDynamo) *Store {
	t.Helper()
	s, err := New(db, "test-table")
	require.NoError(t, err)
	return s
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "t")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, "  ")
	require.Error(t, err)
}

func TestRecentWindow_QueryShape(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pinNow(t, now)

	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{}}
	s := mustNewStore(t, db)

	recs, err := s.RecentWindow(context.Background(), "u1", 24*time.Hour, 5)
	require.NoError(t, err)
	require.Empty(t, recs)

	in := db.lastQueryIn
	require.Equal(t, "test-table", *in.TableName)
	require.Equal(t, "userKey = :user AND turnTimestamp >= :cutoff", *in.KeyConditionExpression)
	require.False(t, *in.ScanIndexForward)
	require.Equal(t, int32(5), *in.Limit)

	cutoff := in.ExpressionAttributeValues[":cutoff"].(*types.AttributeValueMemberN)
	require.Equal(t, strconv.FormatInt(now.Add(-24*time.Hour).UnixMilli(), 10), cutoff.Value)
}

func TestRecentWindow_ReturnsRecordsNewestFirst(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pinNow(t, now)

	future := now.Add(time.Hour).Unix()
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		makeRecordItem("u1", now.UnixMilli(), "latest", future),
		makeRecordItem("u1", now.Add(-time.Hour).UnixMilli(), "earlier", future),
	}}}
	s := mustNewStore(t, db)

	recs, err := s.RecentWindow(context.Background(), "u1", 24*time.Hour, 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "latest", recs[0].RequestText)
	require.Equal(t, "earlier", recs[1].RequestText)
	require.Equal(t, domain.CategorySubject, recs[0].PrimaryCategory)
	require.Equal(t, domain.LanguageEnglish, recs[0].LanguageTag)
}

func TestRecentWindow_FiltersExpiredRecords(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pinNow(t, now)

	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		makeRecordItem("u1", now.UnixMilli(), "live", now.Add(time.Hour).Unix()),
		makeRecordItem("u1", now.Add(-time.Hour).UnixMilli(), "expired", now.Add(-time.Minute).Unix()),
		makeRecordItem("u1", now.Add(-2*time.Hour).UnixMilli(), "expiring-now", now.Unix()),
	}}}
	s := mustNewStore(t, db)

	recs, err := s.RecentWindow(context.Background(), "u1", 24*time.Hour, 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "live", recs[0].RequestText)
}

func TestRecentWindow_EmptyHistoryIsNotAnError(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: nil}}
	s := mustNewStore(t, db)

	recs, err := s.RecentWindow(context.Background(), "u1", 24*time.Hour, 5)
	require.NoError(t, err)
	require.NotNil(t, recs)
	require.Empty(t, recs)
}

func TestRecentWindow_QueryError(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("throttled")}
	s := mustNewStore(t, db)

	_, err := s.RecentWindow(context.Background(), "u1", 24*time.Hour, 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "RecentWindow query")
}

func TestRecentWindow_Validation(t *testing.T) {
	s := mustNewStore(t, &fakeDynamo{})
	_, err := s.RecentWindow(context.Background(), " ", 24*time.Hour, 5)
	require.Error(t, err)
	_, err = s.RecentWindow(context.Background(), "u1", 24*time.Hour, 0)
	require.Error(t, err)
}

func TestAppend_ItemShape(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewStore(t, db)

	err := s.Append(context.Background(), domain.ConversationRecord{
		UserKey:         "u1",
		TurnTimestamp:   1700000000000,
		RequestText:     "what is force",
		ResponseText:    "force is...",
		PrimaryCategory: domain.CategorySubject,
		SubCategory:     domain.SubFAQ,
		SubjectTag:      domain.SubjectPhysics,
		LanguageTag:     domain.LanguageEnglish,
		IsFollowUp:      true,
		ExpireAt:        1707776000,
	})
	require.NoError(t, err)

	in := db.lastPutInput
	require.Equal(t, "test-table", *in.TableName)
	require.Equal(t, "attribute_not_exists(userKey) AND attribute_not_exists(turnTimestamp)", *in.ConditionExpression)

	require.Equal(t, "u1", in.Item["userKey"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "1700000000000", in.Item["turnTimestamp"].(*types.AttributeValueMemberN).Value)
	require.Equal(t, "what is force", in.Item["requestText"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "subject_related", in.Item["classification"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "faq", in.Item["subClassification"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "Physics", in.Item["subject"].(*types.AttributeValueMemberS).Value)
	require.True(t, in.Item["isFollowUp"].(*types.AttributeValueMemberBOOL).Value)
	require.Equal(t, "1707776000", in.Item["expireAt"].(*types.AttributeValueMemberN).Value)
}

func TestAppend_OmitsEmptyOptionalAttributes(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewStore(t, db)

	err := s.Append(context.Background(), domain.ConversationRecord{
		UserKey:         "u1",
		TurnTimestamp:   1700000000000,
		RequestText:     "hello",
		PrimaryCategory: domain.CategoryConversation,
		LanguageTag:     domain.LanguageEnglish,
		ExpireAt:        1707776000,
	})
	require.NoError(t, err)
	require.NotContains(t, db.lastPutInput.Item, "subClassification")
	require.NotContains(t, db.lastPutInput.Item, "subject")
}

func TestAppend_Validation(t *testing.T) {
	s := mustNewStore(t, &fakeDynamo{})

	err := s.Append(context.Background(), domain.ConversationRecord{TurnTimestamp: 1, ExpireAt: 1})
	require.Error(t, err)
	err = s.Append(context.Background(), domain.ConversationRecord{UserKey: "u1", ExpireAt: 1})
	require.Error(t, err)
	err = s.Append(context.Background(), domain.ConversationRecord{UserKey: "u1", TurnTimestamp: 1})
	require.Error(t, err)
}

func TestAppend_PutError(t *testing.T) {
	s := mustNewStore(t, &fakeDynamo{putErr: errors.New("conditional check failed")})

	err := s.Append(context.Background(), domain.ConversationRecord{
		UserKey: "u1", TurnTimestamp: 1, ExpireAt: 1,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Append")
}

func TestPurgeOlderThan_DeletesAndCounts(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		{
			"userKey":       &types.AttributeValueMemberS{Value: "u1"},
			"turnTimestamp": &types.AttributeValueMemberN{Value: "100"},
		},
		{
			"userKey":       &types.AttributeValueMemberS{Value: "u1"},
			"turnTimestamp": &types.AttributeValueMemberN{Value: "200"},
		},
	}}}
	s := mustNewStore(t, db)

	deleted, err := s.PurgeOlderThan(context.Background(), "u1", 1000)
	require.NoError(t, err)
	require.Equal(t, 2, deleted)
	require.Len(t, db.deleteCalls, 2)

	require.Equal(t, "userKey = :user AND turnTimestamp < :cutoff", *db.lastQueryIn.KeyConditionExpression)
	require.Equal(t, "1000", db.lastQueryIn.ExpressionAttributeValues[":cutoff"].(*types.AttributeValueMemberN).Value)

	key := db.deleteCalls[0].Key
	require.Equal(t, "u1", key["userKey"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "100", key["turnTimestamp"].(*types.AttributeValueMemberN).Value)
}

func TestPurgeOlderThan_DeleteErrorReturnsPartialCount(t *testing.T) {
	db := &fakeDynamo{
		queryOut: &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
			{
				"userKey":       &types.AttributeValueMemberS{Value: "u1"},
				"turnTimestamp": &types.AttributeValueMemberN{Value: "100"},
			},
		}},
		deleteErr: errors.New("boom"),
	}
	s := mustNewStore(t, db)

	deleted, err := s.PurgeOlderThan(context.Background(), "u1", 1000)
	require.Error(t, err)
	require.Equal(t, 0, deleted)
}
