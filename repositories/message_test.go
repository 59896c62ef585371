package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Record_Multiple_Messages(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	room := "general"
	at := time.Now().UTC()
	diskMessages := []DiskMessage{
		NewDiskMessage(room, "u-alice", "first", at),
		NewDiskMessage(room, "u-bob", "second", at.Add(1*time.Minute)),
		NewDiskMessage(room, "u-clara", "third", at.Add(2*time.Minute)),
	}
	for _, dm := range diskMessages {
		req.NoError(repository.StoreMessage(dm))
	}

	fetched, err := repository.History(room)
	req.NoError(err)
	req.Equal(diskMessages, fetched)
}

func Test_History_Is_Chronological_Regardless_Of_Write_Order(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	room := "general"
	at := time.Now().UTC()
	newest := NewDiskMessage(room, "u-alice", "newest", at.Add(2*time.Minute))
	oldest := NewDiskMessage(room, "u-alice", "oldest", at)
	middle := NewDiskMessage(room, "u-alice", "middle", at.Add(1*time.Minute))

	// Writes land out of order
	for _, dm := range []DiskMessage{newest, oldest, middle} {
		req.NoError(repository.StoreMessage(dm))
	}

	fetched, err := repository.History(room)
	req.NoError(err)
	req.Equal([]DiskMessage{oldest, middle, newest}, fetched)
}

func Test_History_With_Limit_Keeps_Newest(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := NewMessageRepository(openTestDB(t), slog.Default(), &limit)

	room := "general"
	at := time.Now().UTC()
	diskMessages := []DiskMessage{
		NewDiskMessage(room, "u-alice", "first", at),
		NewDiskMessage(room, "u-bob", "second", at.Add(1*time.Minute)),
		NewDiskMessage(room, "u-clara", "third", at.Add(2*time.Minute)),
	}
	for _, dm := range diskMessages {
		req.NoError(repository.StoreMessage(dm))
	}

	fetched, err := repository.History(room)
	req.NoError(err)

	// The cap keeps the newest N, still in ascending order
	req.Equal([]DiskMessage{diskMessages[1], diskMessages[2]}, fetched)
}

func Test_History_Isolates_Rooms(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	at := time.Now().UTC()
	general := NewDiskMessage("general", "u-alice", "here", at)
	random := NewDiskMessage("random", "u-alice", "there", at)
	req.NoError(repository.StoreMessage(general))
	req.NoError(repository.StoreMessage(random))

	fetched, err := repository.History("general")
	req.NoError(err)
	req.Equal([]DiskMessage{general}, fetched)
}

func Test_History_Room_Key_Containing_Separator(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	// One room key is a textual prefix of the other
	at := time.Now().UTC()
	public := NewDiskMessage("general", "u-alice", "open to all", at)
	private := NewDiskMessage("general:private", "u-alice", "members only", at)
	req.NoError(repository.StoreMessage(public))
	req.NoError(repository.StoreMessage(private))

	fetched, err := repository.History("general")
	req.NoError(err)
	req.Equal([]DiskMessage{public}, fetched)

	fetched, err = repository.History("general:private")
	req.NoError(err)
	req.Equal([]DiskMessage{private}, fetched)
}

func Test_History_Empty_Room(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	fetched, err := repository.History("ghost-town")
	req.NoError(err)
	req.Empty(fetched)
}

func Test_Same_Nanosecond_Messages_Both_Survive(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	// Two messages stamped at the exact same instant only differ by ID
	at := time.Now().UTC()
	first := NewDiskMessage("general", "u-alice", "snap", at)
	second := NewDiskMessage("general", "u-bob", "snap", at)
	req.NoError(repository.StoreMessage(first))
	req.NoError(repository.StoreMessage(second))

	fetched, err := repository.History("general")
	req.NoError(err)
	req.Len(fetched, 2)
}
