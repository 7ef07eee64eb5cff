package cart

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
)

// DynamoSnapshotStore keeps anonymous cart snapshots in a DynamoDB table
// keyed by snapshot_key, for deployments backed by hosted AWS storage
// instead of Postgres.
type DynamoSnapshotStore struct {
	client    *dynamodb.Client
	tableName string
}

type dynamoSnapshot struct {
	SnapshotKey string `dynamodbav:"snapshot_key"`
	Items       string `dynamodbav:"items"`
	UpdatedAt   string `dynamodbav:"updated_at"`
}

func NewDynamoSnapshotStore(client *dynamodb.Client, tableName string) *DynamoSnapshotStore {
	return &DynamoSnapshotStore{client: client, tableName: tableName}
}

func (s *DynamoSnapshotStore) Load(ctx context.Context, key string) ([]SnapshotItem, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"snapshot_key": &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var record dynamoSnapshot
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", key, err)
	}

	var items []SnapshotItem
	if err := json.Unmarshal([]byte(record.Items), &items); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return items, nil
}

func (s *DynamoSnapshotStore) Save(ctx context.Context, key string, items []SnapshotItem) error {
	if items == nil {
		items = []SnapshotItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}

	av, err := attributevalue.MarshalMap(dynamoSnapshot{
		SnapshotKey: key,
		Items:       string(raw),
		UpdatedAt:   time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", key, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

func (s *DynamoSnapshotStore) Clear(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"snapshot_key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		// Deleting an absent key is fine; anything else is reported.
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("clear snapshot %s: %w", key, err)
	}
	return nil
}
