package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson" // 引入 bson 套件
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// pingTimeout 啟動時確認連線的時間上限
const pingTimeout = 3 * time.Second

// 集合名稱
const (
	RoomsCollection    = "rooms"
	MessagesCollection = "messages"
	UsersCollection    = "users"
)

// ConnectMongoDB 建立 MongoDB 連線。連線本身是延遲建立的：
// ping 失敗只記錄警告，後端無法使用時由登入流程的探測與備援決定改用哪個後端。
// 即時訂閱依賴 change stream，伺服器必須是 replica set。
func ConnectMongoDB(ctx context.Context, uri, name string, log zerolog.Logger) (*mongo.Database, error) {
	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	// Ping the primary to verify connection
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		log.Warn().Err(err).Str("db", name).Msg("MongoDB unreachable, continuing without it")
	} else {
		log.Info().Str("db", name).Msg("Connected to MongoDB successfully!")
	}
	return client.Database(name), nil
}

// EnsureIndexes 建立查詢所需的索引。
// 過期的房間在下一次讀取時才銷毀重建，因此這裡刻意不設 TTL 索引。
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	// 訊息依房間查詢並依 createdAt 升序排列
	_, err := db.Collection(MessagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create messages index: %w", err)
	}

	// 只有具名帳號有 email，匿名帳號不受唯一限制
	_, err = db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"email": bson.M{"$type": "string"}}),
	})
	if err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}
	return nil
}

// DisconnectMongoDB 關閉 MongoDB 連線
func DisconnectMongoDB(db *mongo.Database, log zerolog.Logger) {
	if db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Client().Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("Error disconnecting from MongoDB")
	} else {
		log.Info().Msg("Disconnected from MongoDB.")
	}
}
