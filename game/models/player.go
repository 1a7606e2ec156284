package models

import (
	"time"

	"github.com/xiaonanln/saganet/engine/storage"
)

// MainStorageId is the storage of items not equipped by any character
const MainStorageId = "MAIN_STORAGE"

// DefaultResources are granted to new players
var DefaultResources = []int{200, 200, 200}

// InitialTalentPoints are granted to every default character
const InitialTalentPoints = 10

// Player is a player account
type Player struct {
	storage.Model

	PasswordHash           string `json:"-"`
	CreationDate           time.Time
	LastLoginDate          time.Time
	Resources              []int
	Items                  []Item
	Characters             []Character
	SelectedCharacterIndex int
}

func (*Player) BaseTableName() string {
	return "Players"
}

func (p *Player) SetDefaults() {
	p.LastLoginDate = time.Now().UTC()
	p.Resources = make([]int, 0, 10)
	p.Items = []Item{}
	p.Characters = []Character{}
	// no character selected yet
	p.SelectedCharacterIndex = -1
}

// CanAfford reports whether the player owns at least the given amount of every resource
func (p *Player) CanAfford(resources []int) bool {
	if len(p.Resources) < len(resources) {
		return false
	}
	for i, amount := range resources {
		if p.Resources[i] < amount {
			return false
		}
	}
	return true
}

// SpendResources subtracts resources, leaving the player untouched when it cannot afford them
func (p *Player) SpendResources(resources []int) bool {
	if !p.CanAfford(resources) {
		return false
	}
	for i, amount := range resources {
		p.Resources[i] -= amount
	}
	return true
}

// AddResources adds resources element-wise. Resource kinds the player never owned are appended.
func (p *Player) AddResources(resources []int) {
	for i, amount := range resources {
		if i < len(p.Resources) {
			p.Resources[i] += amount
		} else {
			p.Resources = append(p.Resources, amount)
		}
	}
}

// SelectedCharacter returns the selected character, or nil before the first selection
func (p *Player) SelectedCharacter() *Character {
	if p.SelectedCharacterIndex < 0 || p.SelectedCharacterIndex >= len(p.Characters) {
		return nil
	}
	return &p.Characters[p.SelectedCharacterIndex]
}

func (p *Player) CharacterByClass(classMetaId string) *Character {
	for i := range p.Characters {
		if p.Characters[i].MetaId == classMetaId {
			return &p.Characters[i]
		}
	}
	return nil
}

func (p *Player) CharacterById(characterId string) *Character {
	for i := range p.Characters {
		if p.Characters[i].Id == characterId {
			return &p.Characters[i]
		}
	}
	return nil
}

// AddItem adds the item unless the player already owns one of the same meta
func (p *Player) AddItem(item Item) bool {
	if p.HasItemOfMeta(item.MetaId) {
		return false
	}
	p.Items = append(p.Items, item)
	return true
}

func (p *Player) HasItemOfMeta(itemMetaId string) bool {
	for _, item := range p.Items {
		if item.MetaId == itemMetaId {
			return true
		}
	}
	return false
}

func (p *Player) ItemById(itemId string) *Item {
	for i := range p.Items {
		if p.Items[i].Id == itemId {
			return &p.Items[i]
		}
	}
	return nil
}

// EquippedItems returns the items owned by the character
func (p *Player) EquippedItems(characterId string) []Item {
	var items []Item
	for _, item := range p.Items {
		if item.OwningCharacterId == characterId {
			items = append(items, item)
		}
	}
	return items
}

// Character is a playable character of a player, described by a class meta
type Character struct {
	MetaDescribed
	Level                int
	Experience           int
	TalentPoints         int
	LearnedTalentMetaIds []string
}

// NewCharacter creates a level zero character of the class
func NewCharacter(classMetaId string) Character {
	return Character{
		MetaDescribed:        NewMetaDescribed(classMetaId),
		LearnedTalentMetaIds: []string{},
	}
}

// ClassMetaId is the class of the character
func (c *Character) ClassMetaId() string {
	return c.MetaId
}

// AddDefaultCharacter gives the player a character of the class, equipped with the class default items
func (p *Player) AddDefaultCharacter(meta *ClassMeta) *Character {
	character := NewCharacter(meta.Id)
	character.TalentPoints = InitialTalentPoints
	for _, itemMetaId := range meta.DefaultItems {
		item := NewItem(itemMetaId)
		item.SetOwningCharacter(character.Id)
		p.AddItem(item)
	}
	p.Characters = append(p.Characters, character)
	return &p.Characters[len(p.Characters)-1]
}

// ClassMeta describes a character class
type ClassMeta struct {
	storage.Model

	ExpToLevelUp []int
	Abilities    []string
	// DefaultItems are the item metas equipped on a new character of the class
	DefaultItems []string
	// IsInitiallyAvailable classes are given to every new player
	IsInitiallyAvailable bool
}

func (*ClassMeta) BaseTableName() string {
	return "ClassMetas"
}

func (m *ClassMeta) SetDefaults() {
	m.ExpToLevelUp = []int{}
	m.Abilities = []string{}
	m.DefaultItems = []string{}
}

// Item is an item owned by a player, kept in a storage or equipped by a character
type Item struct {
	MetaDescribed
	StorageId         string
	OwningCharacterId string
}

// NewItem creates an item kept in the main storage
func NewItem(itemMetaId string) Item {
	return Item{
		MetaDescribed: NewMetaDescribed(itemMetaId),
		StorageId:     MainStorageId,
	}
}

func (i *Item) IsOwnedByCharacter() bool {
	return i.OwningCharacterId != ""
}

// SetStorage moves the item into a storage, unequipping it
func (i *Item) SetStorage(storageId string) {
	i.StorageId = storageId
	i.OwningCharacterId = ""
}

// SetOwningCharacter equips the item on a character
func (i *Item) SetOwningCharacter(characterId string) {
	i.OwningCharacterId = characterId
	i.StorageId = ""
}
