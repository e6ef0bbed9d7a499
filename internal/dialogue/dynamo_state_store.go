package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// dynamoStateItem is the table row; the record itself travels as a JSON payload.
type dynamoStateItem struct {
	SessionID string `dynamodbav:"sessionId"`
	OrgID     string `dynamodbav:"orgId,omitempty"`
	Version   int64  `dynamodbav:"version"`
	Payload   string `dynamodbav:"payload"`
	UpdatedAt string `dynamodbav:"updatedAt"`
	ExpiresAt int64  `dynamodbav:"expiresAt,omitempty"`
}

// DynamoStateStore persists session records with conditional writes.
type DynamoStateStore struct {
	client    dynamoAPI
	tableName string
	ttl       time.Duration
	logger    *logging.Logger
}

var _ StateStore = (*DynamoStateStore)(nil)

func NewDynamoStateStore(client dynamoAPI, tableName string, ttl time.Duration, logger *logging.Logger) *DynamoStateStore {
	if client == nil {
		panic("dialogue: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("dialogue: table name cannot be empty")
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoStateStore{client: client, tableName: tableName, ttl: ttl, logger: logger}
}

func (s *DynamoStateStore) Get(ctx context.Context, sessionID string) (Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            sessionKey(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Record{}, fmt.Errorf("dialogue: fetch state: %w", err)
	}
	if out.Item == nil {
		return Record{}, ErrSessionNotFound
	}

	var item dynamoStateItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return Record{}, fmt.Errorf("dialogue: decode state item: %w", err)
	}
	rec, err := decodeRecord([]byte(item.Payload))
	if err != nil {
		return Record{}, err
	}
	rec.Version = item.Version
	return rec, nil
}

func (s *DynamoStateStore) CompareAndSwap(ctx context.Context, sessionID string, expected int64, rec Record) error {
	rec.Version = expected + 1
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("dialogue: marshal state: %w", err)
	}
	now := time.Now().UTC()
	item, err := attributevalue.MarshalMap(dynamoStateItem{
		SessionID: sessionID,
		OrgID:     rec.Session.OrgID,
		Version:   rec.Version,
		Payload:   string(payload),
		UpdatedAt: now.Format(time.RFC3339Nano),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("dialogue: marshal state item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}
	if expected == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(sessionId)")
	} else {
		input.ConditionExpression = aws.String("#version = :expected")
		input.ExpressionAttributeNames = map[string]string{"#version": "version"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expected)},
		}
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrVersionConflict
		}
		return fmt.Errorf("dialogue: persist state: %w", err)
	}
	return nil
}

func (s *DynamoStateStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       sessionKey(sessionID),
	})
	if err != nil {
		return fmt.Errorf("dialogue: delete state: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"sessionId": &types.AttributeValueMemberS{Value: sessionID},
	}
}
