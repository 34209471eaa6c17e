package dynamo

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/cinemalab/cinema-data/internal/config"
)

const (
	EntityMovies       = "movies"
	EntityRooms        = "rooms"
	EntityReservations = "reservations"
	EntityUsers        = "users"
)

type IndexSpec struct {
	Name string
	Key  string
	Type types.ScalarAttributeType
}

type TableSpec struct {
	Entity   string
	Name     string
	HashKey  string
	HashType types.ScalarAttributeType
	Indexes  []IndexSpec
}

// Specs returns the four wide tables in setup order.
func Specs(names config.DynamoTables) []TableSpec {
	s := types.ScalarAttributeTypeS
	return []TableSpec{
		{
			Entity: EntityMovies, Name: names.Movies, HashKey: "movie_id", HashType: s,
			Indexes: []IndexSpec{{Name: "GenreIndex", Key: "genre_id", Type: s}},
		},
		{
			Entity: EntityRooms, Name: names.Rooms, HashKey: "room_id", HashType: types.ScalarAttributeTypeN,
			Indexes: []IndexSpec{{Name: "ScreenTypeIndex", Key: "screen_type", Type: s}},
		},
		{
			Entity: EntityReservations, Name: names.Reservations, HashKey: "reservation_id", HashType: s,
			Indexes: []IndexSpec{
				{Name: "UserIndex", Key: "user_id", Type: s},
				{Name: "MovieIndex", Key: "movie_id", Type: s},
			},
		},
		{
			Entity: EntityUsers, Name: names.Users, HashKey: "user_id", HashType: s,
			Indexes: []IndexSpec{{Name: "EmailIndex", Key: "email", Type: s}},
		},
	}
}

// createInput renders the spec as an on-demand CreateTable request with
// all-attribute index projections.
func (t TableSpec) createInput() *dynamodb.CreateTableInput {
	defs := []types.AttributeDefinition{{AttributeName: aws.String(t.HashKey), AttributeType: t.HashType}}
	seen := map[string]bool{t.HashKey: true}

	var gsis []types.GlobalSecondaryIndex
	for _, idx := range t.Indexes {
		if !seen[idx.Key] {
			defs = append(defs, types.AttributeDefinition{AttributeName: aws.String(idx.Key), AttributeType: idx.Type})
			seen[idx.Key] = true
		}
		gsis = append(gsis, types.GlobalSecondaryIndex{
			IndexName:  aws.String(idx.Name),
			KeySchema:  []types.KeySchemaElement{{AttributeName: aws.String(idx.Key), KeyType: types.KeyTypeHash}},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}

	return &dynamodb.CreateTableInput{
		TableName:              aws.String(t.Name),
		KeySchema:              []types.KeySchemaElement{{AttributeName: aws.String(t.HashKey), KeyType: types.KeyTypeHash}},
		AttributeDefinitions:   defs,
		GlobalSecondaryIndexes: gsis,
		BillingMode:            types.BillingModePayPerRequest,
	}
}
