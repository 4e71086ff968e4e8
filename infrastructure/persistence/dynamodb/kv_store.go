package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"notepad-backend/application/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	partitionPrefix = "KV#"
	sortKeyPrefix   = "KEY#"
)

// Client is the subset of the DynamoDB API the KV store uses.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// KVStore keeps every key of one namespace in a single partition so that
// listing is a Query instead of a Scan.
type KVStore struct {
	client    Client
	tableName string
	partition string
	logger    *zap.Logger
	now       func() time.Time
}

// kvItem represents the DynamoDB item structure for a single key
type kvItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Key       string `dynamodbav:"Key"`
	Value     string `dynamodbav:"Value"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// NewKVStore creates a store over tableName for the given namespace.
func NewKVStore(client Client, tableName, namespace string, logger *zap.Logger) *KVStore {
	return &KVStore{
		client:    client,
		tableName: tableName,
		partition: partitionPrefix + namespace,
		logger:    logger,
		now:       time.Now,
	}
}

var _ ports.KVStore = (*KVStore)(nil)

func (s *KVStore) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: s.partition},
		"SK": &types.AttributeValueMemberS{Value: sortKeyPrefix + key},
	}
}

// Get reads the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		s.logAPIError("GetItem", key, err)
		return "", fmt.Errorf("failed to get key %q: %w", key, err)
	}
	if len(out.Item) == 0 {
		return "", ports.ErrKeyNotFound
	}

	var item kvItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", fmt.Errorf("failed to unmarshal key %q: %w", key, err)
	}
	return item.Value, nil
}

// Put stores value under key, replacing any previous value.
func (s *KVStore) Put(ctx context.Context, key, value string) error {
	item := kvItem{
		PK:        s.partition,
		SK:        sortKeyPrefix + key,
		Key:       key,
		Value:     value,
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal key %q: %w", key, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		s.logAPIError("PutItem", key, err)
		return fmt.Errorf("failed to put key %q: %w", key, err)
	}
	return nil
}

// Delete removes key. DeleteItem on a missing item succeeds.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.itemKey(key),
	})
	if err != nil {
		s.logAPIError("DeleteItem", key, err)
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// List returns the keys starting with prefix in sort-key order.
func (s *KVStore) List(ctx context.Context, prefix string) ([]string, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(s.partition)).
		And(expression.Key("SK").BeginsWith(sortKeyPrefix + prefix))
	proj := expression.NamesList(expression.Name("SK"))

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyCond).
		WithProjection(proj).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build list expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logAPIError("Query", prefix, err)
			return nil, fmt.Errorf("failed to list keys: %w", err)
		}
		for _, raw := range page.Items {
			var item kvItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				s.logger.Warn("Skipping malformed item", zap.Error(err))
				continue
			}
			keys = append(keys, strings.TrimPrefix(item.SK, sortKeyPrefix))
		}
	}
	return keys, nil
}

func (s *KVStore) logAPIError(operation, key string, err error) {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return
	}
	s.logger.Error("DynamoDB request failed",
		zap.String("operation", operation),
		zap.String("key", key),
		zap.String("code", ae.ErrorCode()),
		zap.String("message", ae.ErrorMessage()),
	)
}
