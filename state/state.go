package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/calehh/circle-app/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	KeyState        = "s"
	KeyParams       = "params"
	KeyPool         = "pool"
	KeyDistribution = "dist"
	KeyAccountBody  = "a%x"
	KeyMemberBody   = "m%016x"
	KeyOwnerIndex   = "o%x"
	KeyOwnerMembers = "om%x"
	KeyCycleBody    = "c%016x"
)

type kvReader interface {
	Get(key []byte) ([]byte, error)
}

type emptyReader struct{}

func (emptyReader) Get([]byte) ([]byte, error) { return nil, nil }

// State is a working set of modifications on top of the iavl tree. Reads fall
// through to the tree; writes stay in the dirty maps until Update flushes them.
type State struct {
	logger cmtlog.Logger
	db     kvReader
	tree   *iavl.MutableTree
	dbVer  int64

	header       *StateHeader
	params       *Params
	pool         *RewardPool
	dist         *DistributionStats
	acnts        map[common.Address]*Account
	members      map[uint64]*Member
	owners       map[common.Address]*uint64
	ownerMembers map[common.Address][]uint64
	cycles       map[uint64]*Cycle
}

func newState(db kvReader, tree *iavl.MutableTree, logger cmtlog.Logger) *State {
	s := &State{
		logger: logger,
		db:     db,
		tree:   tree,
		header: new(StateHeader),
	}
	s.resetDirty()
	return s
}

func (s *State) resetDirty() {
	s.params = nil
	s.pool = nil
	s.dist = nil
	s.acnts = make(map[common.Address]*Account)
	s.members = make(map[uint64]*Member)
	s.owners = make(map[common.Address]*uint64)
	s.ownerMembers = make(map[common.Address][]uint64)
	s.cycles = make(map[uint64]*Cycle)
}

func (s *State) nextState() *State {
	n := newState(s.db, s.tree, s.logger)
	n.dbVer = s.dbVer
	n.header = s.header.Clone()
	if s.header.GetHash() != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func deepCopyMap[K comparable, V any](source map[K]V, clone func(V) V) map[K]V {
	res := make(map[K]V, len(source))
	for k, v := range source {
		res[k] = clone(v)
	}
	return res
}

// Clone returns an independent copy of the working set. Discarding the clone
// discards every change made to it.
func (s *State) Clone() *State {
	n := &State{
		logger: s.logger,
		db:     s.db,
		tree:   s.tree,
		dbVer:  s.dbVer,
		header: s.header.Clone(),
	}
	if s.params != nil {
		p := *s.params
		n.params = &p
	}
	if s.pool != nil {
		p := *s.pool
		n.pool = &p
	}
	if s.dist != nil {
		d := *s.dist
		n.dist = &d
	}
	n.acnts = deepCopyMap(s.acnts, (*Account).Clone)
	n.members = deepCopyMap(s.members, (*Member).Clone)
	n.cycles = deepCopyMap(s.cycles, (*Cycle).Clone)
	n.owners = deepCopyMap(s.owners, func(p *uint64) *uint64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	})
	n.ownerMembers = deepCopyMap(s.ownerMembers, func(v []uint64) []uint64 {
		return append([]uint64(nil), v...)
	})
	return n
}

func (s *State) get(key string) (val []byte, err error) {
	val, err = s.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return
}

func (s *State) getJSON(key string, v any) (found bool, err error) {
	val, err := s.get(key)
	if err != nil || val == nil {
		return false, err
	}
	if err = json.Unmarshal(val, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrUnexpectedStateData, key, err)
	}
	return true, nil
}

func (s *State) load() (err error) {
	val, err := s.get(KeyState)
	if err != nil || val == nil {
		return
	}
	err = s.header.Unmarshal(val)
	if err != nil {
		return
	}
	if s.tree != nil {
		h := s.tree.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = append(s.header.RootHash[:0], rootHash...)
		s.header.Hash = append(s.header.Hash[:0], h[:]...)
	}
	return
}

func (s *State) setJSON(key string, v any) (err error) {
	val, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, err = s.tree.Set([]byte(key), val)
	return
}

func sortedKeys[K comparable](m map[K]bool, less func(a, b K) bool) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}

func addrLess(a, b common.Address) bool { return bytes.Compare(a[:], b[:]) < 0 }

// Update flushes the working set into the tree in a deterministic order and
// returns the app hash of the working tree.
func (s *State) Update() (h common.Hash, err error) {
	if s.tree == nil {
		return h, ErrReadOnlyState
	}
	var hash []byte
	defer func() {
		if hash == nil {
			s.tree.Rollback()
		}
	}()
	if _, err = s.tree.Set([]byte(KeyState), s.header.Marshal()); err != nil {
		return
	}
	if s.params != nil {
		if err = s.setJSON(KeyParams, s.params); err != nil {
			return
		}
	}
	if s.pool != nil {
		if err = s.setJSON(KeyPool, s.pool); err != nil {
			return
		}
	}
	if s.dist != nil {
		if err = s.setJSON(KeyDistribution, s.dist); err != nil {
			return
		}
	}

	acntKeys := make(map[common.Address]bool, len(s.acnts))
	for k := range s.acnts {
		acntKeys[k] = true
	}
	for _, addr := range sortedKeys(acntKeys, addrLess) {
		if err = s.setJSON(fmt.Sprintf(KeyAccountBody, addr[:]), s.acnts[addr]); err != nil {
			return
		}
	}

	memberKeys := make(map[uint64]bool, len(s.members))
	for k := range s.members {
		memberKeys[k] = true
	}
	for _, pos := range sortedKeys(memberKeys, func(a, b uint64) bool { return a < b }) {
		if err = s.setJSON(fmt.Sprintf(KeyMemberBody, pos), s.members[pos]); err != nil {
			return
		}
	}

	ownerKeys := make(map[common.Address]bool, len(s.owners)+len(s.ownerMembers))
	for k := range s.owners {
		ownerKeys[k] = true
	}
	for _, owner := range sortedKeys(ownerKeys, addrLess) {
		key := []byte(fmt.Sprintf(KeyOwnerIndex, owner[:]))
		pos := s.owners[owner]
		if pos == nil {
			if _, _, err = s.tree.Remove(key); err != nil {
				return
			}
			continue
		}
		var val []byte
		val, err = rlp.EncodeToBytes(*pos)
		if err != nil {
			return
		}
		if _, err = s.tree.Set(key, val); err != nil {
			return
		}
	}
	ownerKeys = make(map[common.Address]bool, len(s.ownerMembers))
	for k := range s.ownerMembers {
		ownerKeys[k] = true
	}
	for _, owner := range sortedKeys(ownerKeys, addrLess) {
		var val []byte
		val, err = rlp.EncodeToBytes(s.ownerMembers[owner])
		if err != nil {
			return
		}
		if _, err = s.tree.Set([]byte(fmt.Sprintf(KeyOwnerMembers, owner[:])), val); err != nil {
			return
		}
	}

	cycleKeys := make(map[uint64]bool, len(s.cycles))
	for k := range s.cycles {
		cycleKeys[k] = true
	}
	for _, epoch := range sortedKeys(cycleKeys, func(a, b uint64) bool { return a < b }) {
		if err = s.setJSON(fmt.Sprintf(KeyCycleBody, epoch), s.cycles[epoch]); err != nil {
			return
		}
	}

	hash = s.tree.WorkingHash()
	h = s.calcHash(hash, false)
	s.resetDirty()
	return
}

func (s *State) save() (h common.Hash, err error) {
	if s.tree == nil {
		return h, ErrReadOnlyState
	}
	hash, ver, err := s.tree.SaveVersion()
	if err != nil {
		return h, err
	}
	s.dbVer = ver
	h = s.calcHash(hash, true)
	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) SetHeight(height uint64) {
	s.header.Height = height
}

func (s *State) SetBlockTime(unix int64) {
	s.header.LastBlockTime = unix
}

func (s *State) Params() (p Params, err error) {
	if s.params != nil {
		return *s.params, nil
	}
	found, err := s.getJSON(KeyParams, &p)
	if err != nil {
		return
	}
	if !found {
		p = DefaultParams()
	}
	return
}

func (s *State) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.params = &p
	return nil
}

func (s *State) GetAccount(addr common.Address) (acnt *Account, err error) {
	if a, ok := s.acnts[addr]; ok {
		return a.Clone(), nil
	}
	acnt = new(Account)
	found, err := s.getJSON(fmt.Sprintf(KeyAccountBody, addr[:]), acnt)
	if err != nil || !found {
		return nil, err
	}
	return
}

// account returns the stored account or a fresh zero account for addr.
func (s *State) account(addr common.Address) (*Account, error) {
	a, err := s.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if a == nil {
		a = &Account{Address: addr}
	}
	return a, nil
}

func (s *State) putAccount(a *Account) {
	s.acnts[a.Address] = a.Clone()
}

func (s *State) BalanceOf(addr common.Address) (uint64, error) {
	a, err := s.GetAccount(addr)
	if err != nil || a == nil {
		return 0, err
	}
	return a.Balance, nil
}

func (s *State) credit(addr common.Address, amount uint64) error {
	a, err := s.account(addr)
	if err != nil {
		return err
	}
	if a.Balance+amount < a.Balance {
		return fmt.Errorf("%w: balance overflow for %s", ErrInvalidAmount, addr.Hex())
	}
	a.Balance += amount
	s.putAccount(a)
	return nil
}

func (s *State) debit(addr common.Address, amount uint64) error {
	a, err := s.account(addr)
	if err != nil {
		return err
	}
	if a.Balance < amount {
		return ErrInsufficientBalance
	}
	a.Balance -= amount
	s.putAccount(a)
	return nil
}

// Transfer moves amount from one address to another within the working set.
func (s *State) Transfer(from, to common.Address, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	if err := s.debit(from, amount); err != nil {
		return err
	}
	return s.credit(to, amount)
}

func (s *State) GetMember(pos uint64) (m *Member, err error) {
	if pos >= s.header.MemberCount {
		return nil, ErrMemberNoexists
	}
	if cached, ok := s.members[pos]; ok {
		return cached.Clone(), nil
	}
	m = new(Member)
	found, err := s.getJSON(fmt.Sprintf(KeyMemberBody, pos), m)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return
}

func (s *State) putMember(m *Member) {
	s.members[m.Position] = m.Clone()
}

// ownedMember loads the member at pos and checks the signer controls it.
func (s *State) ownedMember(pos uint64, signer common.Address) (*Member, error) {
	m, err := s.GetMember(pos)
	if err != nil {
		return nil, err
	}
	if m.Owner != signer {
		return nil, ErrNotOwner
	}
	return m, nil
}

// FindMember returns the live member of owner, or nil.
func (s *State) FindMember(owner common.Address) (m *Member, err error) {
	pos, ok, err := s.ownerPosition(owner)
	if err != nil || !ok {
		return nil, err
	}
	return s.GetMember(pos)
}

func (s *State) ownerPosition(owner common.Address) (pos uint64, ok bool, err error) {
	if p, cached := s.owners[owner]; cached {
		if p == nil {
			return 0, false, nil
		}
		return *p, true, nil
	}
	val, err := s.get(fmt.Sprintf(KeyOwnerIndex, owner[:]))
	if err != nil || val == nil {
		return 0, false, err
	}
	if err = rlp.DecodeBytes(val, &pos); err != nil {
		return 0, false, err
	}
	return pos, true, nil
}

func (s *State) setOwnerPosition(owner common.Address, pos uint64) {
	s.owners[owner] = &pos
}

func (s *State) clearOwnerPosition(owner common.Address) {
	s.owners[owner] = nil
}

// MembersOf lists every position ever held by owner, retired ones included.
func (s *State) MembersOf(owner common.Address) (positions []uint64, err error) {
	if cached, ok := s.ownerMembers[owner]; ok {
		return append([]uint64(nil), cached...), nil
	}
	val, err := s.get(fmt.Sprintf(KeyOwnerMembers, owner[:]))
	if err != nil || val == nil {
		return nil, err
	}
	err = rlp.DecodeBytes(val, &positions)
	return
}

func (s *State) addOwnerMember(owner common.Address, pos uint64) error {
	positions, err := s.MembersOf(owner)
	if err != nil {
		return err
	}
	s.ownerMembers[owner] = append(positions, pos)
	return nil
}

// Ring returns every member in ring position order.
func (s *State) Ring() (ring []*Member, err error) {
	ring = make([]*Member, 0, s.header.MemberCount)
	for pos := uint64(0); pos < s.header.MemberCount; pos++ {
		m, err := s.GetMember(pos)
		if err != nil {
			return nil, err
		}
		ring = append(ring, m)
	}
	return
}

func (s *State) GetCycle(epoch uint64) (c *Cycle, err error) {
	if cached, ok := s.cycles[epoch]; ok {
		return cached.Clone(), nil
	}
	c = new(Cycle)
	found, err := s.getJSON(fmt.Sprintf(KeyCycleBody, epoch), c)
	if err != nil || !found {
		return nil, err
	}
	return
}

// LatestCycle returns the most recently started cycle, or nil.
func (s *State) LatestCycle() (*Cycle, error) {
	if !s.header.HasCycle {
		return nil, nil
	}
	return s.GetCycle(s.header.LatestEpoch)
}

func (s *State) putCycle(c *Cycle) {
	s.cycles[c.EpochId] = c.Clone()
	if !s.header.HasCycle || c.EpochId >= s.header.LatestEpoch {
		s.header.HasCycle = true
		s.header.LatestEpoch = c.EpochId
	}
}

func (s *State) Pool() (p *RewardPool, err error) {
	if s.pool != nil {
		cp := *s.pool
		return &cp, nil
	}
	p = new(RewardPool)
	_, err = s.getJSON(KeyPool, p)
	return
}

func (s *State) putPool(p *RewardPool) {
	cp := *p
	s.pool = &cp
}

func (s *State) Distribution() (d *DistributionStats, err error) {
	if s.dist != nil {
		cp := *s.dist
		return &cp, nil
	}
	d = new(DistributionStats)
	_, err = s.getJSON(KeyDistribution, d)
	return
}

func (s *State) putDistribution(d *DistributionStats) {
	cp := *d
	s.dist = &cp
}

// Verify checks the envelope signature and nonce against the sender account.
func (s *State) Verify(btx *tx.CircleTx, allowNonceGap bool) (succ bool, err error) {
	if len(btx.Sender) != 32 {
		return false, ErrTxSenderInvalid
	}
	a, err := s.GetAccount(AddressOfPubKey(btx.Sender))
	if err != nil {
		return succ, err
	}
	if a == nil {
		a = &Account{}
	}
	if !(a.Nonce == btx.Nonce || (allowNonceGap && a.Nonce < btx.Nonce)) {
		err = ErrTxNonceInvalid
		return
	}
	if a.PubKey == nil {
		a.SetPubKey(btx.Sender)
	}
	dat, err := btx.SigData([]byte(s.header.ChainId))
	if err != nil {
		return succ, err
	}
	succ = a.Verify(dat, btx.Sig)
	if !succ {
		err = ErrTxSigInvalid
	}
	return
}

// IncrementNonce consumes the envelope nonce of an included tx, creating the
// sender account on first use.
func (s *State) IncrementNonce(btx *tx.CircleTx) error {
	a, err := s.account(AddressOfPubKey(btx.Sender))
	if err != nil {
		return err
	}
	if a.PubKey == nil {
		a.SetPubKey(btx.Sender)
	}
	a.Nonce += 1
	s.putAccount(a)
	return nil
}
