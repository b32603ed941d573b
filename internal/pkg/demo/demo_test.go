package demo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqserve/cqserve/internal/pkg/demo"
)

func TestHelloGreetsByName(t *testing.T) {
	rsp, err := demo.Hello(context.Background(), nil, &demo.HelloRequest{Name: "cqserve"})
	require.NoError(t, err)
	require.Equal(t, "Hello, cqserve", rsp.Message)
}

func TestHelloDefaultsToWorld(t *testing.T) {
	rsp, err := demo.Hello(context.Background(), nil, &demo.HelloRequest{})
	require.NoError(t, err)
	require.Equal(t, "Hello, world", rsp.Message)
}

func TestArithmeticSumAndProduct(t *testing.T) {
	req := &demo.ArithmeticRequest{A: 6, B: 7}

	sum, err := demo.Sum(context.Background(), nil, req)
	require.NoError(t, err)
	require.Equal(t, int64(13), sum.Result)

	product, err := demo.Product(context.Background(), nil, req)
	require.NoError(t, err)
	require.Equal(t, int64(42), product.Result)
}

func TestQuotient(t *testing.T) {
	rsp, err := demo.Quotient(context.Background(), nil, &demo.ArithmeticRequest{A: 10, B: 2})
	require.NoError(t, err)
	require.Equal(t, int64(5), rsp.Result)
}

func TestQuotientByZeroIsInvalidArgument(t *testing.T) {
	_, err := demo.Quotient(context.Background(), nil, &demo.ArithmeticRequest{A: 10, B: 0})
	require.Error(t, err)
	require.Contains(t, err.Error(), "division by zero")
}
