package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"cafe-pos-service/internal/access"
	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/logx"
	"cafe-pos-service/internal/pos"
)

// CatalogServiceName is the fully-qualified gRPC service name.
const CatalogServiceName = "cafepos.v1.Catalog"

// CatalogServer is the read-only gRPC view of the live catalog. Requests
// and responses are google.protobuf.Struct values.
type CatalogServer interface {
	ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListCategories(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type catalogMethod func(srv CatalogServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call catalogMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CatalogServiceName + "/" + name}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CatalogServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListProducts", Handler: unaryHandler("ListProducts", CatalogServer.ListProducts)},
		{MethodName: "GetProduct", Handler: unaryHandler("GetProduct", CatalogServer.GetProduct)},
		{MethodName: "ListCategories", Handler: unaryHandler("ListCategories", CatalogServer.ListCategories)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cafepos/v1/catalog.proto",
}

// RegisterCatalogServer registers srv on s.
func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

// GRPCHandler implements CatalogServer over the in-memory snapshot.
type GRPCHandler struct {
	catalog *pos.Catalog
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(catalog *pos.Catalog) *GRPCHandler {
	return &GRPCHandler{catalog: catalog}
}

// --- Helper: Error Mapping ---

// mapErrorToGrpcStatus turns an errx classification into a gRPC status.
func mapErrorToGrpcStatus(err error) error {
	if err == nil {
		return nil
	}
	code := codes.Internal
	switch errx.StatusOf(err) {
	case 400:
		code = codes.InvalidArgument
	case 401:
		code = codes.Unauthenticated
	case 403:
		code = codes.PermissionDenied
	case 404:
		code = codes.NotFound
	case 409:
		code = codes.AlreadyExists
	case 502, 503:
		code = codes.Unavailable
	}
	return status.Error(code, errx.MessageOf(err))
}

// ListProducts takes optional "category", "query", "page_size" and
// "page_token" fields. Without a category every product is listed.
func (s *GRPCHandler) ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	category := fields["category"].GetStringValue()
	query := fields["query"].GetStringValue()

	limit := int(fields["page_size"].GetNumberValue())
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset := 0
	if token := fields["page_token"].GetStringValue(); token != "" {
		parsed, err := strconv.Atoi(token)
		if err != nil || parsed < 0 {
			return nil, mapErrorToGrpcStatus(errx.WithMessage(errx.ErrBadRequest, "invalid page token"))
		}
		offset = parsed
	}

	products := pos.FilterAll(s.catalog.Products(), category, query)
	totalCount := len(products)
	if offset > totalCount {
		offset = totalCount
	}
	end := offset + limit
	if end > totalCount {
		end = totalCount
	}

	items := make([]interface{}, 0, end-offset)
	for i := range products[offset:end] {
		items = append(items, productFields(&products[offset+i]))
	}
	var nextPageToken string
	if end < totalCount {
		nextPageToken = strconv.Itoa(end)
	}

	logx.Debug().Str("category", category).Int("returned", len(items)).Int("total", totalCount).Msg("gRPC ListProducts")
	return newStruct(map[string]interface{}{
		"products":        items,
		"next_page_token": nextPageToken,
		"total_size":      totalCount,
	})
}

// GetProduct takes a "product_id" field.
func (s *GRPCHandler) GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := req.GetFields()["product_id"].GetStringValue()
	if id == "" {
		return nil, mapErrorToGrpcStatus(errx.WithMessage(errx.ErrBadRequest, "product_id is required"))
	}
	product, ok := s.catalog.Lookup(id)
	if !ok {
		return nil, mapErrorToGrpcStatus(errx.WithMessage(errx.ErrStoreNotFound, "product not found"))
	}
	return newStruct(map[string]interface{}{"product": productFields(&product)})
}

func (s *GRPCHandler) ListCategories(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	categories := s.catalog.Categories()
	items := make([]interface{}, 0, len(categories))
	for _, c := range categories {
		items = append(items, map[string]interface{}{
			"id":         c.ID,
			"name":       c.Name,
			"created_at": c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return newStruct(map[string]interface{}{"categories": items})
}

func newStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		logx.Error().Err(err).Msg("failed to build gRPC response")
		return nil, status.Error(codes.Internal, errx.SystemErrorMessage)
	}
	return out, nil
}

// productFields keeps the price as a fixed two-decimal string so it survives
// the float64 number type of Struct.
func productFields(p *domain.Product) map[string]interface{} {
	return map[string]interface{}{
		"id":         p.ID,
		"title":      p.Title,
		"type":       p.Subtype,
		"price":      p.Price.StringFixed(2),
		"unit":       p.Unit,
		"detail":     p.Detail,
		"image":      p.Image,
		"status":     string(p.Status),
		"category":   p.Category,
		"sold_out":   p.SoldOut(),
		"updated_at": p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// UnaryLogger logs every unary call with its status code and latency.
func UnaryLogger(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	event := logx.Info()
	if err != nil {
		event = logx.Warn().Err(err)
	}
	event.Str("method", info.FullMethod).Str("code", status.Code(err).String()).Dur("latency", time.Since(start)).Msg("gRPC request")
	return resp, err
}

// SessionResolver resolves an API token to its session.
type SessionResolver interface {
	CurrentSession(ctx context.Context, token string) (*domain.Session, error)
}

// UnaryAuth resolves the bearer token in the "authorization" metadata of
// catalog calls. Callers without a guest or member session are refused.
// Other services on the server (health, reflection) pass through.
func UnaryAuth(sessions SessionResolver) grpc.UnaryServerInterceptor {
	prefix := "/" + CatalogServiceName + "/"
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return handler(ctx, req)
		}
		session, err := sessions.CurrentSession(ctx, metadataToken(ctx))
		if err != nil {
			return nil, mapErrorToGrpcStatus(err)
		}
		if access.ModeOf(session) == access.Unauthenticated {
			return nil, mapErrorToGrpcStatus(errx.WithMessage(errx.ErrSessionExpired, "please sign in"))
		}
		return handler(context.WithValue(ctx, sessionKey{}, session), req)
	}
}

func metadataToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, header := range md.Get("authorization") {
		if token := parseBearer(header); token != "" {
			return token
		}
	}
	return ""
}

// WithToken attaches a session token to outgoing catalog calls.
func WithToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

// CatalogClient calls CatalogServer over a client connection.
type CatalogClient struct {
	cc grpc.ClientConnInterface
}

func NewCatalogClient(cc grpc.ClientConnInterface) *CatalogClient {
	return &CatalogClient{cc: cc}
}

func (c *CatalogClient) invoke(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+CatalogServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogClient) ListProducts(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListProducts", req, opts...)
}

func (c *CatalogClient) GetProduct(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetProduct", req, opts...)
}

func (c *CatalogClient) ListCategories(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListCategories", req, opts...)
}
