/*
 * Copyright © 2025 Quayside Systems Inc., All rights reserved.
 */

package mock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalCondition(t *testing.T) {
	item := map[string]types.AttributeValue{
		"id":    &types.AttributeValueMemberS{Value: "e42"},
		"name":  &types.AttributeValueMemberS{Value: "Marge"},
		"level": &types.AttributeValueMemberN{Value: "7"},
	}
	names := map[string]string{"#0": "id", "#1": "level", "#hk": "id"}
	values := map[string]types.AttributeValue{
		":0":  &types.AttributeValueMemberS{Value: "e42"},
		":1":  &types.AttributeValueMemberN{Value: "5"},
		":2":  &types.AttributeValueMemberN{Value: "10"},
		":pf": &types.AttributeValueMemberS{Value: "e4"},
	}
	env := evalEnv{names: names, values: values, item: item}

	tests := []struct {
		expr string
		want bool
	}{
		{"#0 = :0", true},
		{"#0 <> :0", false},
		{"#1 > :1", true},
		{"#1 <= :1", false},
		{"(#0 = :0) AND (#1 >= :1)", true},
		{"(#0 = :0) AND (#1 < :1)", false},
		{"(#1 < :1) OR (#1 < :2)", true},
		{"#1 BETWEEN :1 AND :2", true},
		{"(#0 = :0) AND (#1 BETWEEN :1 AND :2)", true},
		{"begins_with (#0, :pf)", true},
		{"begins_with(#0, :pf)", true},
		{"contains (#0, :pf)", true},
		{"attribute_exists (#0)", true},
		{"attribute_not_exists (#0)", false},
		{"attribute_not_exists(#hk)", false},
		{"NOT (#0 = :0)", false},
		{"", true},
	}
	for _, tt := range tests {
		got, err := evalCondition(tt.expr, env)
		require.NoError(t, err, "expr %q", tt.expr)
		assert.Equal(t, tt.want, got, "expr %q", tt.expr)
	}
}

func TestEvalConditionAbsentItem(t *testing.T) {
	env := evalEnv{names: map[string]string{"#hk": "id"}}
	got, err := evalCondition("attribute_not_exists(#hk)", env)
	require.NoError(t, err)
	assert.True(t, got, "absent item has no attributes")

	got, err = evalCondition("attribute_exists(#hk)", env)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvalConditionUnsupported(t *testing.T) {
	_, err := evalCondition("size (#0) > :0", evalEnv{})
	assert.Error(t, err)
}

func newTestTable(t *testing.T, client *Client, name string) {
	t.Helper()
	_, err := client.CreateTable(context.Background(), &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
	})
	require.NoError(t, err)
}

func putTestItem(t *testing.T, client *Client, table, pk, sk string) {
	t.Helper()
	_, err := client.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"sk": &types.AttributeValueMemberS{Value: sk},
		},
	})
	require.NoError(t, err)
}

func TestConditionalPut(t *testing.T) {
	client := NewClient()
	newTestTable(t, client, "things")
	putTestItem(t, client, "things", "a", "1")

	_, err := client.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String("things"),
		Item: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: "a"},
			"sk": &types.AttributeValueMemberS{Value: "1"},
		},
		ConditionExpression:      aws.String("attribute_not_exists(#hk)"),
		ExpressionAttributeNames: map[string]string{"#hk": "pk"},
	})
	var cfe *types.ConditionalCheckFailedException
	require.ErrorAs(t, err, &cfe)
}

func TestDeleteItemReturnsOldValues(t *testing.T) {
	client := NewClient()
	newTestTable(t, client, "things")
	putTestItem(t, client, "things", "a", "1")

	key := map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "a"},
		"sk": &types.AttributeValueMemberS{Value: "1"},
	}
	out, err := client.DeleteItem(context.Background(), &dynamodb.DeleteItemInput{
		TableName:    aws.String("things"),
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Attributes)

	// Second delete of the same key finds nothing.
	out, err = client.DeleteItem(context.Background(), &dynamodb.DeleteItemInput{
		TableName:    aws.String("things"),
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Attributes)
}

func TestQueryPagingWithStartKey(t *testing.T) {
	client := NewClient()
	newTestTable(t, client, "things")
	for _, sk := range []string{"1", "2", "3", "4"} {
		putTestItem(t, client, "things", "a", sk)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String("things"),
		KeyConditionExpression:    aws.String("#0 = :0"),
		ExpressionAttributeNames:  map[string]string{"#0": "pk"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":0": &types.AttributeValueMemberS{Value: "a"}},
		Limit:                     aws.Int32(3),
	}
	first, err := client.Query(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.NotEmpty(t, first.LastEvaluatedKey)

	input.ExclusiveStartKey = first.LastEvaluatedKey
	second, err := client.Query(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.LastEvaluatedKey)
	assert.Equal(t, "4", second.Items[0]["sk"].(*types.AttributeValueMemberS).Value)
}

func TestTableLifecycle(t *testing.T) {
	client := NewClient()
	newTestTable(t, client, "things")

	_, err := client.CreateTable(context.Background(), &dynamodb.CreateTableInput{
		TableName: aws.String("things"),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
		},
	})
	var riu *types.ResourceInUseException
	require.ErrorAs(t, err, &riu)

	desc, err := client.DescribeTable(context.Background(), &dynamodb.DescribeTableInput{
		TableName: aws.String("things"),
	})
	require.NoError(t, err)
	assert.Equal(t, types.TableStatusActive, desc.Table.TableStatus)

	_, err = client.DeleteTable(context.Background(), &dynamodb.DeleteTableInput{
		TableName: aws.String("things"),
	})
	require.NoError(t, err)

	var rnf *types.ResourceNotFoundException
	_, err = client.DescribeTable(context.Background(), &dynamodb.DescribeTableInput{
		TableName: aws.String("things"),
	})
	require.ErrorAs(t, err, &rnf)

	_, err = client.DeleteTable(context.Background(), &dynamodb.DeleteTableInput{
		TableName: aws.String("things"),
	})
	require.ErrorAs(t, err, &rnf)
}
