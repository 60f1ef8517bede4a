package dal

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bxcodec/faker/v3"
	"github.com/stretchr/testify/assert"

	"github.com/minibank/minibank/pkg/bank"
	tst "github.com/minibank/minibank/pkg/internal/testing"
)

var testNow = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

func tempSnapshotPath(t *testing.T) string {
	dir, err := ioutil.TempDir("", "minibank-dal")
	if err != nil {
		panic(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "data", "bank_data.json")
}

func randomSnapshot() *bank.Snapshot {
	accountID := "100001"
	timeText := testNow.Format(bank.TimeTextFormat)
	return &bank.Snapshot{
		NextAccountID:         100002,
		NextTransactionNumber: 3,
		Accounts: []bank.Account{
			{
				AccountID: accountID,
				OwnerName: faker.Name(),
				PINCode:   "1234",
				Balance:   1500,
				CreatedAt: timeText,
			},
		},
		Transactions: []bank.Transaction{
			{
				TransactionID: "TRANSACTION_00000001",
				Type:          bank.TransactionTypeDeposit,
				Amount:        2000,
				TimeText:      timeText,
				Note:          "initial deposit",
				FromAccountID: "",
				ToAccountID:   accountID,
			},
			{
				TransactionID: "TRANSACTION_00000002",
				Type:          bank.TransactionTypeWithdraw,
				Amount:        500,
				TimeText:      timeText,
				Note:          faker.Sentence(),
				FromAccountID: accountID,
				ToAccountID:   "",
			},
		},
	}
}

func newTestFileStorage(t *testing.T) (Storage, string) {
	path := tempSnapshotPath(t)
	storage, err := NewFileStorage(
		WithFilePath(path),
		WithFileNowService(tst.NewMockNowService(testNow)),
	)
	if err != nil {
		panic(err)
	}
	return storage, path
}

func Test_fileStorage_Load_MissingFile(t *testing.T) {
	storage, path := newTestFileStorage(t)

	got, err := storage.Load(context.Background())
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, defaultSnapshot(), got)

	// The defaults must have been written out
	if _, err := os.Stat(path); !assert.NoError(t, err) {
		return
	}
}

func Test_fileStorage_SaveLoadRoundTrip(t *testing.T) {
	storage, _ := newTestFileStorage(t)
	snapshot := randomSnapshot()

	if err := storage.Save(context.Background(), snapshot); !assert.NoError(t, err) {
		return
	}
	got, err := storage.Load(context.Background())
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, snapshot, got)
}

func Test_fileStorage_Load_BrokenFile(t *testing.T) {
	storage, path := newTestFileStorage(t)
	if err := os.MkdirAll(filepath.Dir(path), 0755); !assert.NoError(t, err) {
		return
	}
	if err := ioutil.WriteFile(path, []byte("{not json"), 0644); !assert.NoError(t, err) {
		return
	}

	got, err := storage.Load(context.Background())
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, defaultSnapshot(), got)

	backup, err := ioutil.ReadFile(path + ".broken")
	if assert.NoError(t, err, "Broken file should be renamed aside") {
		assert.Equal(t, "{not json", string(backup))
	}
}

func Test_fileStorage_Load_LenientDocument(t *testing.T) {
	type testCase struct {
		name    string
		payload string
		assert  func(t *testing.T, got *bank.Snapshot)
	}
	defaultTimeText := testNow.Format(bank.TimeTextFormat)
	tests := []testCase{
		{
			name:    "numeric ids and pins are coerced to strings",
			payload: `{"next_account_id": 100002, "next_transaction_number": 1, "accounts": [{"account_id": 100001, "owner_name": "Alice", "pin_code": 1234, "balance": 10}], "transactions": []}`,
			assert: func(t *testing.T, got *bank.Snapshot) {
				if !assert.Len(t, got.Accounts, 1) {
					return
				}
				assert.Equal(t, "100001", got.Accounts[0].AccountID)
				assert.Equal(t, "1234", got.Accounts[0].PINCode)
			},
		},
		{
			name:    "missing optional fields get defaults",
			payload: `{"accounts": [{"account_id": "100001", "owner_name": "Alice", "pin_code": "1234"}], "transactions": [{"transaction_id": "TRANSACTION_00000001", "transaction_type": "DEPOSIT", "amount": 5}]}`,
			assert: func(t *testing.T, got *bank.Snapshot) {
				assert.Equal(t, int64(bank.DefaultNextAccountID), got.NextAccountID)
				assert.Equal(t, int64(bank.DefaultNextTransactionNumber), got.NextTransactionNumber)
				if !assert.Len(t, got.Accounts, 1) {
					return
				}
				assert.Equal(t, int64(0), got.Accounts[0].Balance)
				assert.Equal(t, defaultTimeText, got.Accounts[0].CreatedAt)
				if !assert.Len(t, got.Transactions, 1) {
					return
				}
				assert.Equal(t, defaultTimeText, got.Transactions[0].TimeText)
				assert.Equal(t, "", got.Transactions[0].Note)
				assert.Equal(t, "", got.Transactions[0].FromAccountID)
			},
		},
		{
			name:    "non array sequences are replaced with empty",
			payload: `{"next_account_id": 100005, "next_transaction_number": 7, "accounts": "oops", "transactions": {"bad": true}}`,
			assert: func(t *testing.T, got *bank.Snapshot) {
				assert.Equal(t, int64(100005), got.NextAccountID)
				assert.Equal(t, int64(7), got.NextTransactionNumber)
				assert.Empty(t, got.Accounts)
				assert.Empty(t, got.Transactions)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, path := newTestFileStorage(t)
			if err := os.MkdirAll(filepath.Dir(path), 0755); !assert.NoError(t, err) {
				return
			}
			if err := ioutil.WriteFile(path, []byte(tt.payload), 0644); !assert.NoError(t, err) {
				return
			}
			got, err := storage.Load(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			tt.assert(t, got)
		})
	}
}

func Test_fileStorage_Save_NullAccountPair(t *testing.T) {
	storage, path := newTestFileStorage(t)
	if err := storage.Save(context.Background(), randomSnapshot()); !assert.NoError(t, err) {
		return
	}
	payload, err := ioutil.ReadFile(path)
	if !assert.NoError(t, err) {
		return
	}
	assert.Contains(t, string(payload), `"from_account_id": null`)
	assert.Contains(t, string(payload), `"to_account_id": null`)
}
