package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanjiru/triagedesk/internal/domain"
	"github.com/wanjiru/triagedesk/internal/logging"
	"github.com/wanjiru/triagedesk/internal/store"
)

func testImporter(t *testing.T) (*Importer, *store.Store) {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := store.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	return New(st, log), st
}

const sampleCSV = `User ID,Timestamp (UTC),Message Body
1001,2025-03-02 10:15:00,my payment has not been received
1002,2025-03-01 09:00:00,hello there
1001,2025-03-01 08:30:00,URGENT!! cant access my account
`

func TestImport_ChronologicalOrder(t *testing.T) {
	im, st := testImporter(t)
	ctx := context.Background()

	sum, err := im.Import(ctx, strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, sum.RowsRead)
	assert.Equal(t, 0, sum.RowsSkipped)
	assert.Equal(t, 2, sum.CustomersCreated)
	assert.Equal(t, 2, sum.ConversationsCreated)
	assert.Equal(t, 3, sum.MessagesCreated)

	cust, err := st.CustomerByUserID(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "+254000001001", cust.Phone)
	require.NotNil(t, cust.CreditScore)
	assert.GreaterOrEqual(t, *cust.CreditScore, 600)

	convs, err := st.ListConversations(ctx, store.ConversationFilter{})
	require.NoError(t, err)
	require.Len(t, convs, 2)

	// Both 1001 rows land in one conversation, oldest first.
	var msgs []domain.Message
	for _, c := range convs {
		if c.Conversation.CustomerID == cust.ID {
			msgs, err = st.ConversationMessages(ctx, c.Conversation.ID)
			require.NoError(t, err)
		}
	}
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "URGENT")
	assert.Equal(t, domain.UrgencyCritical, msgs[0].UrgencyLevel)
	assert.True(t, msgs[0].Timestamp.Before(msgs[1].Timestamp))
}

func TestImport_SkipsInvalidRows(t *testing.T) {
	im, _ := testImporter(t)

	csv := `User ID,Timestamp (UTC),Message Body
abc,2025-03-01 09:00:00,bad user id
1001,not-a-date,bad timestamp
1001,2025-03-01 09:00:00,
1002,2025-03-01 09:00:00,valid row
`
	sum, err := im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 4, sum.RowsRead)
	assert.Equal(t, 3, sum.RowsSkipped)
	assert.Equal(t, 1, sum.MessagesCreated)
}

func TestImport_MissingColumn(t *testing.T) {
	im, _ := testImporter(t)

	_, err := im.Import(context.Background(), strings.NewReader("User ID,Message Body\n1,hello\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Timestamp (UTC)")
}

func TestImport_ExistingCustomerNotRecreated(t *testing.T) {
	im, st := testImporter(t)
	ctx := context.Background()

	_, _, err := st.EnsureCustomer(ctx, store.CustomerSeed{UserID: 1001, Name: "Jane"})
	require.NoError(t, err)

	sum, err := im.Import(ctx, strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.CustomersCreated)

	cust, err := st.CustomerByUserID(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "Jane", cust.Name, "imports never overwrite existing profiles")
}

func TestImport_RFC3339Timestamps(t *testing.T) {
	im, _ := testImporter(t)

	csv := "User ID,Timestamp (UTC),Message Body\n1,2025-03-01T09:00:00Z,hello\n"
	sum, err := im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.MessagesCreated)
}
