package ordersv1

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	require.NotNil(t, codec)
	require.Equal(t, CodecName, codec.Name())
}

func TestCodecRoundTripKeepsOptionalFields(t *testing.T) {
	notes := "ring twice"
	in := &UpdateOrderRequest{
		OrderID: "order-1",
		Notes:   &notes,
		Items:   []*ItemQuantity{{OrderItemID: "line-1", Quantity: 3}},
	}

	data, err := Codec{}.Marshal(in)
	require.NoError(t, err)
	require.NotContains(t, string(data), `"status"`)

	var out UpdateOrderRequest
	require.NoError(t, Codec{}.Unmarshal(data, &out))
	require.Nil(t, out.Status)
	require.NotNil(t, out.Notes)
	require.Equal(t, notes, *out.Notes)
	require.Equal(t, int32(3), out.Items[0].Quantity)
}

func TestCodecUnmarshalErrors(t *testing.T) {
	var out GetOrderRequest
	require.NoError(t, Codec{}.Unmarshal(nil, &out))
	require.Error(t, Codec{}.Unmarshal([]byte("{broken"), &out))
}
