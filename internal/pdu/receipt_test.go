package pdu_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajankovic-labs/smsc/internal/pdu"
)

func TestReceiptStringFormat(t *testing.T) {
	submit := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	done := time.Date(2026, 7, 30, 10, 1, 0, 0, time.UTC)
	dr := pdu.NewReceipt("0000000A", submit, done, true)
	got := dr.String()
	want := "id:0000000A sub:001 dlvrd:001 submit date:2607301000 done date:2607301001 stat:DELIVRD err:000 text:"
	assert.Equal(t, want, got)
}

func TestReceiptStringTruncatesText(t *testing.T) {
	dr := pdu.NewReceipt("1", time.Now(), time.Now(), false)
	dr.Text = "this text is way longer than twenty characters"
	got := dr.String()
	assert.Contains(t, got, "text:this text is way lon")
	assert.NotContains(t, got, "twenty characters")
}

func TestParseDeliveryReceiptRoundTrip(t *testing.T) {
	submit := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	done := time.Date(2026, 7, 30, 10, 1, 0, 0, time.UTC)
	dr := pdu.NewReceipt("0000000A", submit, done, false)
	dr.Text = "hello world"

	parsed, err := pdu.ParseDeliveryReceipt(dr.String())
	require.NoError(t, err)
	assert.Equal(t, "0000000A", parsed.MessageID)
	assert.Equal(t, "001", parsed.Sub)
	assert.Equal(t, "000", parsed.Delivered)
	assert.Equal(t, pdu.DelStatUndeliverable, parsed.Stat)
	assert.Equal(t, "000", parsed.Err)
	assert.Equal(t, "hello world", parsed.Text)
	assert.True(t, submit.Equal(parsed.SubmitDate))
	assert.True(t, done.Equal(parsed.DoneDate))
}

func TestParseDeliveryReceiptMissingText(t *testing.T) {
	_, err := pdu.ParseDeliveryReceipt("id:1 sub:001 dlvrd:001")
	assert.Error(t, err)
}
