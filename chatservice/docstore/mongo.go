package docstore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nicetalk/chatservice"
	"nicetalk/database"
	"nicetalk/models"
)

// MongoStore 以 MongoDB 集合實作 Store 與 Accounts
type MongoStore struct {
	db       *mongo.Database
	schema   *database.Schema
	rooms    *mongo.Collection
	messages *mongo.Collection
	users    *mongo.Collection
}

// NewMongoStore 的 schema 在每次存取前確認索引已建立，可為 nil
func NewMongoStore(db *mongo.Database, schema *database.Schema) *MongoStore {
	return &MongoStore{
		db:       db,
		schema:   schema,
		rooms:    db.Collection(database.RoomsCollection),
		messages: db.Collection(database.MessagesCollection),
		users:    db.Collection(database.UsersCollection),
	}
}

func (s *MongoStore) FindRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	var room models.Room
	err := s.rooms.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *MongoStore) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := s.schema.Ensure(ctx); err != nil {
		return err
	}
	// 房間已存在時篩選條件不成立，upsert 會以相同 _id 插入而觸發 duplicate key
	filter := bson.M{"_id": room.RoomID, "createdAt": bson.M{"$exists": false}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"password":     room.Password,
			"participants": room.Participants,
			"status":       room.Status,
			"expiresAt":    room.ExpiresAt,
			"createdAt":    "$$NOW",
		}}},
	}

	_, err := s.rooms.UpdateOne(ctx, filter, pipeline, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("create room %s: %w", room.RoomID, chatservice.ErrConflict)
	}
	return err
}

func (s *MongoStore) AddParticipant(ctx context.Context, room *models.Room, userID string) error {
	if err := s.schema.Ensure(ctx); err != nil {
		return err
	}
	// 房間在讀取後被銷毀重建時 createdAt 不同，不會加入別人的新房間
	filter := bson.M{
		"_id":            room.RoomID,
		"createdAt":      room.CreatedAt,
		"password":       room.Password,
		"participants.1": bson.M{"$exists": false},
		"participants":   bson.M{"$ne": userID},
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"participants": bson.M{"$concatArrays": bson.A{"$participants", bson.A{userID}}},
		}}},
		{{Key: "$set", Value: bson.M{
			"status": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{bson.M{"$size": "$participants"}, models.MaxParticipants}},
				models.RoomStatusActive,
				models.RoomStatusWaiting,
			}},
		}}},
	}

	result, err := s.rooms.UpdateOne(ctx, filter, pipeline)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("add participant to %s: %w", room.RoomID, chatservice.ErrConflict)
	}
	return nil
}

func (s *MongoStore) DeleteRoomCascade(ctx context.Context, roomID string) error {
	if err := s.schema.Ensure(ctx); err != nil {
		return err
	}
	sess, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.messages.DeleteMany(sc, bson.M{"roomId": roomID}); err != nil {
			return nil, err
		}
		if _, err := s.rooms.DeleteOne(sc, bson.M{"_id": roomID}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (s *MongoStore) InsertMessage(ctx context.Context, roomID, text, sender string) error {
	if err := s.schema.Ensure(ctx); err != nil {
		return err
	}
	id := primitive.NewObjectID().Hex()
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"roomId":    roomID,
			"text":      text,
			"sender":    sender,
			"createdAt": "$$NOW",
		}}},
	}
	_, err := s.messages.UpdateOne(ctx, bson.M{"_id": id}, pipeline, options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

type roomEvent struct {
	OperationType string       `bson:"operationType"`
	FullDocument  *models.Room `bson:"fullDocument"`
}

type messageEvent struct {
	OperationType string          `bson:"operationType"`
	FullDocument  *models.Message `bson:"fullDocument"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

func (s *MongoStore) WatchRoom(ctx context.Context, roomID string, fn func(*models.Room)) error {
	if err := s.schema.Ensure(ctx); err != nil {
		return err
	}
	// 先開串流再讀目前狀態，兩者之間的變更不會遺失
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"documentKey._id": roomID}}}}
	stream, err := s.rooms.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return fmt.Errorf("watch room %s: %w", roomID, err)
	}
	defer stream.Close(context.Background())

	room, err := s.FindRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("read room %s: %w", roomID, err)
	}
	fn(room)

	for stream.Next(ctx) {
		var event roomEvent
		if err := stream.Decode(&event); err != nil {
			return fmt.Errorf("decode room event: %w", err)
		}
		switch event.OperationType {
		case "insert", "update", "replace":
			fn(event.FullDocument)
		case "delete":
			fn(nil)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return stream.Err()
}

func (s *MongoStore) WatchMessages(ctx context.Context, roomID string, fn func([]models.Message)) error {
	if err := s.schema.Ensure(ctx); err != nil {
		return err
	}
	// 刪除事件沒有 fullDocument，只能以 documentKey 比對目前清單
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"$or": bson.A{
		bson.M{"operationType": "insert", "fullDocument.roomId": roomID},
		bson.M{"operationType": "delete"},
	}}}}}
	stream, err := s.messages.Watch(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("watch messages %s: %w", roomID, err)
	}
	defer stream.Close(context.Background())

	messages, err := s.ListMessages(ctx, roomID)
	if err != nil {
		return fmt.Errorf("list messages %s: %w", roomID, err)
	}
	fn(slices.Clone(messages))

	for stream.Next(ctx) {
		var event messageEvent
		if err := stream.Decode(&event); err != nil {
			return fmt.Errorf("decode message event: %w", err)
		}

		var changed bool
		switch event.OperationType {
		case "insert":
			messages, changed = insertOrdered(messages, event.FullDocument)
		case "delete":
			messages, changed = removeByID(messages, event.DocumentKey.ID)
		}
		if changed {
			fn(slices.Clone(messages))
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return stream.Err()
}

// insertOrdered 依 (createdAt, id) 將 msg 插入已排序的清單
func insertOrdered(messages []models.Message, msg *models.Message) ([]models.Message, bool) {
	if msg == nil {
		return messages, false
	}
	i, found := slices.BinarySearchFunc(messages, *msg, models.CompareMessages)
	if found {
		return messages, false
	}
	return slices.Insert(messages, i, *msg), true
}

func removeByID(messages []models.Message, id string) ([]models.Message, bool) {
	i := slices.IndexFunc(messages, func(m models.Message) bool { return m.ID == id })
	if i < 0 {
		return messages, false
	}
	return slices.Delete(messages, i, i+1), true
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) CreateAnonymousUser(ctx context.Context) (*models.User, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return nil, err
	}
	user := &models.User{ID: uuid.NewString(), Anonymous: true}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return nil, fmt.Errorf("create anonymous user: %w", err)
	}
	return user, nil
}
