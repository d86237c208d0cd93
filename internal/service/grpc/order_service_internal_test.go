package grpcsvc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/restbucks/internal/domain"
)

func TestToStatusError(t *testing.T) {
	t.Parallel()

	svc := NewOrderService(nil, nil, nil, logrus.NewEntry(logrus.New()))

	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"not found", domain.ErrOrderNotFound, codes.NotFound},
		{"wrapped not found", fmt.Errorf("load: %w", domain.ErrOrderNotFound), codes.NotFound},
		{"invalid transition", &domain.InvalidStateTransitionError{OrderID: "o", From: domain.OrderStatusPaid, To: domain.OrderStatusTaken}, codes.FailedPrecondition},
		{"version conflict", domain.ErrOrderVersionConflict, codes.Aborted},
		{"invalid status", domain.ErrInvalidStatus, codes.InvalidArgument},
		{"cancelled", context.Canceled, codes.Canceled},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"storage failure", errors.New("connection reset"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.toStatusError(tt.err, methodMarkPaid, "o")
			require.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestToStatusError_HidesInternalDetails(t *testing.T) {
	t.Parallel()

	svc := NewOrderService(nil, nil, nil, nil)
	err := svc.toStatusError(errors.New("password=secret"), methodGetOrder, "o")

	st, ok := status.FromError(err)
	require.True(t, ok)
	require.NotContains(t, st.Message(), "secret")
}

func TestOrderFields(t *testing.T) {
	t.Parallel()

	fields := orderFields(domain.Order{
		ID:          "order-1",
		Status:      domain.OrderStatusPrepared,
		Location:    domain.LocationToGo,
		Currency:    "EUR",
		AmountMinor: 700,
		Version:     3,
		Items: []domain.LineItem{
			{ID: "i1", Name: "mocha", Qty: 2, Size: domain.SizeMedium, PriceMinor: 350},
		},
	})

	st, err := newStruct(fields)
	require.NoError(t, err)
	require.Equal(t, "PREPARED", st.GetFields()["status"].GetStringValue())
	require.Equal(t, "TO_GO", st.GetFields()["location"].GetStringValue())
	require.EqualValues(t, 700, st.GetFields()["amount_minor"].GetNumberValue())
	require.Len(t, st.GetFields()["items"].GetListValue().GetValues(), 1)
}
