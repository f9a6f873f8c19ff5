package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/YushiOMOTE/buddy/internal/model"
)

// DefaultDynamoTable is the table conversation logs are stored in.
const DefaultDynamoTable = "channels"

// DynamoAPI is the subset of the DynamoDB client used by the dynamo store.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dynamoItem struct {
	ID      string        `dynamodbav:"id"`
	Events  []dynamoEvent `dynamodbav:"events"`
	Version int64         `dynamodbav:"version"`
}

// dynamoEvent mirrors the stored turn shape: a NULL user is the assistant.
type dynamoEvent struct {
	User *string `dynamodbav:"user"`
	Msg  string  `dynamodbav:"msg"`
}

type dynamoStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoStore returns a ConversationStore backed by a DynamoDB table keyed by "id".
// Items written before versioning existed have no version attribute and load as version 0.
func NewDynamoStore(client DynamoAPI, table string) ConversationStore {
	if table == "" {
		table = DefaultDynamoTable
	}
	return &dynamoStore{client: client, table: table}
}

func (s *dynamoStore) Get(ctx context.Context, id string) (*model.ConversationLog, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting conversation item: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("decoding conversation item: %w", err)
	}

	log := model.NewConversationLog(item.ID)
	for _, e := range item.Events {
		if e.User != nil {
			log.Append(model.UserTurn(*e.User, e.Msg))
		} else {
			log.Append(model.AssistantTurn(e.Msg))
		}
	}
	log.Version = item.Version
	return log, nil
}

func (s *dynamoStore) Put(ctx context.Context, log *model.ConversationLog) error {
	next := log.Version + 1

	item := dynamoItem{
		ID:      log.ID,
		Events:  make([]dynamoEvent, 0, len(log.Turns)),
		Version: next,
	}
	for _, t := range log.Turns {
		e := dynamoEvent{Msg: t.Text}
		if id, ok := t.Speaker.ParticipantID(); ok {
			e.User = aws.String(id)
		}
		item.Events = append(item.Events, e)
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("encoding conversation item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     av,
		ExpressionAttributeNames: map[string]string{"#v": "version"},
	}
	if log.Version == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(#v)")
	} else {
		input.ConditionExpression = aws.String("#v = :expected")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(log.Version, 10)},
		}
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConflict
		}
		return fmt.Errorf("putting conversation item: %w", err)
	}

	log.Version = next
	return nil
}
