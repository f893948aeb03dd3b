package agent

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

// Member rows key on a surrogate id since gorm skips a zero primary key on
// insert and position 0 is valid.
type Member struct {
	Id              uint64 `gorm:"primary_key;auto_increment" json:"-"`
	Position        uint64 `gorm:"unique_index" json:"position"`
	Address         string `json:"address"`
	Owner           string `gorm:"index" json:"owner"`
	Active          bool   `json:"active"`
	Retired         bool   `json:"retired"`
	Banned          bool   `json:"banned"`
	BanUntil        int64  `json:"ban_until"`
	CyclesCompleted uint64 `json:"cycles_completed"`
	CyclesFailed    uint64 `json:"cycles_failed"`
	PioneerRank     uint32 `json:"pioneer_rank"`
	Referrer        string `json:"referrer"`
	Accrued         uint64 `json:"accrued"`
	AutoSign        string `json:"auto_sign"`
	JoinHeight      uint64 `json:"join_height"`
}

type Cycle struct {
	Id              uint64 `gorm:"primary_key;auto_increment" json:"-"`
	Epoch           uint64 `gorm:"unique_index" json:"epoch"`
	Status          string `json:"status"`
	Holder          uint64 `json:"holder"`
	StartedBy       string `json:"started_by"`
	Participants    uint64 `json:"participants"`
	StartHeight     uint64 `json:"start_height"`
	EndHeight       uint64 `json:"end_height"`
	CompletedCycles uint64 `json:"completed_cycles"`
	Distributed     uint64 `json:"distributed"`
	Burned          uint64 `json:"burned"`
	PiBonus         uint64 `json:"pi_bonus"`
}

type Forward struct {
	Id        uint64 `gorm:"primary_key;auto_increment" json:"id"`
	Epoch     uint64 `gorm:"index" json:"epoch"`
	FromPos   uint64 `json:"from"`
	ToPos     uint64 `json:"to"`
	ToCenter  bool   `json:"to_center"`
	Delegated bool   `json:"delegated"`
	Height    uint64 `json:"height"`
}

type Reward struct {
	Id       uint64 `gorm:"primary_key;auto_increment" json:"id"`
	Epoch    uint64 `gorm:"index" json:"epoch"`
	Position uint64 `json:"position"`
	Owner    string `gorm:"index" json:"owner"`
	Amount   uint64 `json:"amount"`
	BonusPct uint64 `json:"bonus_pct"`
	Height   uint64 `json:"height"`
}

type Claim struct {
	Id        uint64 `gorm:"primary_key;auto_increment" json:"id"`
	Owner     string `gorm:"index" json:"owner"`
	Amount    uint64 `json:"amount"`
	Positions string `json:"positions"`
	Height    uint64 `json:"height"`
}

type Deposit struct {
	Id        uint64 `gorm:"primary_key;auto_increment" json:"id"`
	Owner     string `gorm:"index" json:"owner"`
	Amount    uint64 `json:"amount"`
	Treasury  uint64 `json:"treasury"`
	DAO       uint64 `json:"dao"`
	Liquidity uint64 `json:"liquidity"`
	Height    uint64 `json:"height"`
}
