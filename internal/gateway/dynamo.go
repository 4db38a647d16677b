package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/deadpool-game/migrator/internal/domain"
)

// batchLimit is DynamoDB's maximum item count per batch request
const batchLimit = 25

// DynamoDBAPI is the subset of the DynamoDB client used by the gateway
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoDB implements Gateway against a DynamoDB single-table design
type DynamoDB struct {
	client DynamoDBAPI
	table  string
}

// NewDynamoDB creates a gateway bound to one table
func NewDynamoDB(client DynamoDBAPI, table string) *DynamoDB {
	return &DynamoDB{client: client, table: table}
}

// Get implements Gateway
func (d *DynamoDB) Get(ctx context.Context, key Key) (*Item, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key:       marshalKey(key),
	})
	if err != nil {
		return nil, classify(fmt.Errorf("get %s/%s: %w", key.PK, key.SK, err))
	}
	if out.Item == nil {
		return nil, fmt.Errorf("get %s/%s: %w", key.PK, key.SK, domain.ErrNotFound)
	}
	return unmarshalItem(out.Item)
}

// Query implements Gateway, following pagination to exhaustion
func (d *DynamoDB) Query(ctx context.Context, pk, skPrefix string) ([]Item, error) {
	var items []Item
	var startKey map[string]ddbtypes.AttributeValue
	for {
		out, err := d.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(d.table),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk_prefix)"),
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":pk":        &ddbtypes.AttributeValueMemberS{Value: pk},
				":sk_prefix": &ddbtypes.AttributeValueMemberS{Value: skPrefix},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, classify(fmt.Errorf("query %s %s*: %w", pk, skPrefix, err))
		}
		for _, raw := range out.Items {
			item, err := unmarshalItem(raw)
			if err != nil {
				return nil, err
			}
			items = append(items, *item)
		}
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// Scan implements Gateway, following pagination to exhaustion
func (d *DynamoDB) Scan(ctx context.Context, pkPrefix, sk string) ([]Item, error) {
	var items []Item
	var startKey map[string]ddbtypes.AttributeValue
	for {
		out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(d.table),
			FilterExpression: aws.String("begins_with(PK, :pk_prefix) AND SK = :sk"),
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":pk_prefix": &ddbtypes.AttributeValueMemberS{Value: pkPrefix},
				":sk":        &ddbtypes.AttributeValueMemberS{Value: sk},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, classify(fmt.Errorf("scan %s*/%s: %w", pkPrefix, sk, err))
		}
		for _, raw := range out.Items {
			item, err := unmarshalItem(raw)
			if err != nil {
				return nil, err
			}
			items = append(items, *item)
		}
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// BatchWrite implements Gateway, chunking to the store's 25-item limit.
// Unprocessed items surface as domain.ErrThrottled so the retry policy
// re-drives the remainder.
func (d *DynamoDB) BatchWrite(ctx context.Context, items []Item) error {
	requests := make([]ddbtypes.WriteRequest, 0, len(items))
	for _, item := range items {
		av, err := marshalItem(item)
		if err != nil {
			return err
		}
		requests = append(requests, ddbtypes.WriteRequest{
			PutRequest: &ddbtypes.PutRequest{Item: av},
		})
	}
	return d.writeRequests(ctx, requests)
}

// BatchDelete implements Gateway, chunking to the store's 25-item limit
func (d *DynamoDB) BatchDelete(ctx context.Context, keys []Key) error {
	requests := make([]ddbtypes.WriteRequest, 0, len(keys))
	for _, key := range keys {
		requests = append(requests, ddbtypes.WriteRequest{
			DeleteRequest: &ddbtypes.DeleteRequest{Key: marshalKey(key)},
		})
	}
	return d.writeRequests(ctx, requests)
}

func (d *DynamoDB) writeRequests(ctx context.Context, requests []ddbtypes.WriteRequest) error {
	for start := 0; start < len(requests); start += batchLimit {
		end := min(start+batchLimit, len(requests))
		out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]ddbtypes.WriteRequest{
				d.table: requests[start:end],
			},
		})
		if err != nil {
			return classify(fmt.Errorf("batch write: %w", err))
		}
		if unprocessed := len(out.UnprocessedItems[d.table]); unprocessed > 0 {
			return fmt.Errorf("batch write left %d unprocessed items: %w", unprocessed, domain.ErrThrottled)
		}
	}
	return nil
}

// classify maps DynamoDB throttling responses onto domain.ErrThrottled and
// leaves everything else fatal
func classify(err error) error {
	var provisioned *ddbtypes.ProvisionedThroughputExceededException
	if errors.As(err, &provisioned) {
		return fmt.Errorf("%w: %v", domain.ErrThrottled, err)
	}
	var requestLimit *ddbtypes.RequestLimitExceeded
	if errors.As(err, &requestLimit) {
		return fmt.Errorf("%w: %v", domain.ErrThrottled, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.ErrorCode(), "Throttling") {
		return fmt.Errorf("%w: %v", domain.ErrThrottled, err)
	}
	return err
}

func marshalKey(key Key) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"PK": &ddbtypes.AttributeValueMemberS{Value: key.PK},
		"SK": &ddbtypes.AttributeValueMemberS{Value: key.SK},
	}
}

func marshalItem(item Item) (map[string]ddbtypes.AttributeValue, error) {
	record := make(map[string]any, len(item.Attributes)+2)
	for name, value := range item.Attributes {
		record[name] = value
	}
	record["PK"] = item.PK
	record["SK"] = item.SK
	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("marshal %s/%s: %w", item.PK, item.SK, err)
	}
	return av, nil
}

func unmarshalItem(av map[string]ddbtypes.AttributeValue) (*Item, error) {
	record := make(map[string]any, len(av))
	if err := attributevalue.UnmarshalMap(av, &record); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	pk, _ := record["PK"].(string)
	sk, _ := record["SK"].(string)
	if pk == "" || sk == "" {
		return nil, fmt.Errorf("item missing composite key: %v", record)
	}
	delete(record, "PK")
	delete(record, "SK")
	return &Item{Key: Key{PK: pk, SK: sk}, Attributes: record}, nil
}
