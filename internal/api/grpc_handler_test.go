package api

import (
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/pos"
)

func setupTestGRPC(t *testing.T) *CatalogClient {
	t.Helper()
	catalog := pos.NewCatalog()
	catalog.ReplaceCategories([]domain.Category{{ID: "c1", Name: "Drinks"}, {ID: "c2", Name: "Bakery"}})
	catalog.ReplaceProducts([]domain.Product{
		{ID: "p1", Title: "Latte", Price: decimal.RequireFromString("45"), Status: domain.StatusInStock, Category: "Drinks"},
		{ID: "p2", Title: "Iced Tea", Price: decimal.RequireFromString("35.5"), Status: domain.StatusSoldOut, Category: "Drinks"},
		{ID: "p3", Title: "Croissant", Price: decimal.RequireFromString("60"), Status: domain.StatusInStock, Category: "Bakery"},
	})

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryLogger, UnaryAuth(new(MockSessionService))))
	RegisterCatalogServer(server, NewGRPCHandler(catalog))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewCatalogClient(conn)
}

func mustStruct(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestGRPCHandler_ListProducts(t *testing.T) {
	client := setupTestGRPC(t)
	ctx := WithToken(context.Background(), guestToken)

	resp, err := client.ListProducts(ctx, mustStruct(t, map[string]interface{}{"category": "Drinks"}))
	require.NoError(t, err)
	products := resp.GetFields()["products"].GetListValue().GetValues()
	require.Len(t, products, 2)
	first := products[0].GetStructValue().GetFields()
	assert.Equal(t, "p1", first["id"].GetStringValue())
	assert.Equal(t, "45.00", first["price"].GetStringValue())
	assert.True(t, products[1].GetStructValue().GetFields()["sold_out"].GetBoolValue())
	assert.Equal(t, float64(2), resp.GetFields()["total_size"].GetNumberValue())
	assert.Empty(t, resp.GetFields()["next_page_token"].GetStringValue())
}

func TestGRPCHandler_ListProducts_Pagination(t *testing.T) {
	client := setupTestGRPC(t)
	ctx := WithToken(context.Background(), guestToken)

	resp, err := client.ListProducts(ctx, mustStruct(t, map[string]interface{}{"page_size": 2}))
	require.NoError(t, err)
	assert.Len(t, resp.GetFields()["products"].GetListValue().GetValues(), 2)
	token := resp.GetFields()["next_page_token"].GetStringValue()
	require.Equal(t, "2", token)

	resp, err = client.ListProducts(ctx, mustStruct(t, map[string]interface{}{"page_size": 2, "page_token": token}))
	require.NoError(t, err)
	products := resp.GetFields()["products"].GetListValue().GetValues()
	require.Len(t, products, 1)
	assert.Equal(t, "p3", products[0].GetStructValue().GetFields()["id"].GetStringValue())

	_, err = client.ListProducts(ctx, mustStruct(t, map[string]interface{}{"page_token": "abc"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCHandler_GetProduct(t *testing.T) {
	client := setupTestGRPC(t)
	ctx := WithToken(context.Background(), guestToken)

	resp, err := client.GetProduct(ctx, mustStruct(t, map[string]interface{}{"product_id": "p2"}))
	require.NoError(t, err)
	product := resp.GetFields()["product"].GetStructValue().GetFields()
	assert.Equal(t, "Iced Tea", product["title"].GetStringValue())
	assert.Equal(t, "35.50", product["price"].GetStringValue())

	_, err = client.GetProduct(ctx, mustStruct(t, map[string]interface{}{"product_id": "nope"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetProduct(ctx, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCHandler_ListCategories(t *testing.T) {
	client := setupTestGRPC(t)

	resp, err := client.ListCategories(WithToken(context.Background(), memberToken), nil)
	require.NoError(t, err)
	categories := resp.GetFields()["categories"].GetListValue().GetValues()
	require.Len(t, categories, 2)
	assert.Equal(t, "Bakery", categories[0].GetStructValue().GetFields()["name"].GetStringValue())
}

func TestGRPCHandler_RequiresSession(t *testing.T) {
	client := setupTestGRPC(t)

	t.Run("no token", func(t *testing.T) {
		_, err := client.ListProducts(context.Background(), nil)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
		_, err = client.ListCategories(context.Background(), nil)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := client.GetProduct(WithToken(context.Background(), "tok-stale"), mustStruct(t, map[string]interface{}{"product_id": "p1"}))
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("guest may browse", func(t *testing.T) {
		resp, err := client.ListProducts(WithToken(context.Background(), guestToken), nil)
		require.NoError(t, err)
		assert.Len(t, resp.GetFields()["products"].GetListValue().GetValues(), 3)
	})
}
