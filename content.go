package main

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Profile is everything the home page shows. It is built once at startup and
// only read afterwards.
type Profile struct {
	Name          string          `toml:"name" json:"name"`
	FullName      string          `toml:"full_name" json:"full_name"`
	Headline      string          `toml:"headline" json:"headline"`
	Tagline       string          `toml:"tagline" json:"tagline"`
	Location      string          `toml:"location" json:"location"`
	Traits        []string        `toml:"traits" json:"traits"`
	SchedulingURL string          `toml:"scheduling_url" json:"scheduling_url"`
	PhotoURL      string          `toml:"photo_url" json:"photo_url"`
	About         []string        `toml:"about" json:"about"`
	Services      []Service       `toml:"services" json:"services"`
	Skills        []Skill         `toml:"skills" json:"skills"`
	Experiences   []Experience    `toml:"experiences" json:"experiences"`
	WhyWorkWithMe []WhyWorkWithMe `toml:"why_work_with_me" json:"why_work_with_me"`
}

type Service struct {
	Title string   `toml:"title" json:"title"`
	Items []string `toml:"items" json:"items"`
}

type Skill string

type Experience struct {
	Title         string   `toml:"title" json:"title"`
	Industry      string   `toml:"industry" json:"industry"`
	Contributions []string `toml:"contributions" json:"contributions"`
}

type WhyWorkWithMe string

// DefaultProfile returns the built-in site copy.
func DefaultProfile() Profile {
	return Profile{
		Name:          "Gail Villanueva",
		FullName:      "Gail (Abigail Jane Villanueva)",
		Headline:      "E-Commerce Operations & Project Management Specialist",
		Tagline:       "Keeping your business organized, efficient, and stress-free.",
		Location:      "Remote, available worldwide",
		Traits:        []string{"Reliable", "Organized", "Results-Driven"},
		SchedulingURL: "https://zcal.co/ecommwizard",
		PhotoURL:      "/static/img/profile.svg",
		About: []string{
			`Hi, I'm Gail (Abigail Jane Villanueva), a detail-oriented and reliable operations specialist who helps business owners manage their projects,
			teams, and daily workflows so they can focus on what truly matters: growth.`,
			`I've spent the last few years assisting entrepreneurs and remote teams in staying organized, on schedule,
			and aligned with their goals. I handle the moving parts behind the scenes, from assigning tasks and
			monitoring progress to overseeing product listings, orders, and communication.`,
			`If you need someone who's organized, trustworthy, and proactive in keeping your business running smoothly,
			that's what I do best. I take pride in my consistency, dedication, and care for every client I work with.`,
		},
		Services: []Service{
			{
				Title: "Project & Operations Management",
				Items: []string{
					"Plan, assign, and track team tasks and deliverables",
					"Maintain timelines and ensure smooth coordination",
					"Organize workflows and create SOPs",
					"Provide regular updates and reports",
				},
			},
			{
				Title: "E-Commerce Operations",
				Items: []string{
					"Manage product listings and pricing accuracy",
					"Monitor sales performance and customer feedback",
					"Handle order processing and tracking",
					"Review profit/loss reports for healthy performance",
				},
			},
			{
				Title: "Client & Team Communication",
				Items: []string{
					"Bridge between business owners and remote staff",
					"Maintain transparent communication",
					"Report project progress and highlight bottlenecks",
					"Foster accountability and clear expectations",
				},
			},
		},
		Skills: []Skill{
			"Project & Team Management",
			"E-Commerce Operations",
			"Order Processing",
			"Process Optimization",
			"SOP Creation",
			"Communication & Coordination",
			"Financial Tracking",
			"Customer Inquiry Management",
			"Data Organization",
			"ClickUp, Trello, Notion",
			"Google Workspace",
			"AI-Assisted Tools",
			"eBay, Shopify, Amazon",
			"Report Analysis",
			"Timeline Management",
			"Quality Assurance",
		},
		Experiences: []Experience{
			{
				Title:    "Operations & Project Coordinator",
				Industry: "Digital Marketing / Creative Services",
				Contributions: []string{
					"Coordinated day-to-day project execution across multiple teams",
					"Managed deliverables and timelines to keep client projects on schedule",
					"Improved communication and accountability through structured follow-ups",
					"Monitored reports and deadlines to ensure top-quality results",
					"Helped business owners stay organized and focus on high-value tasks",
				},
			},
			{
				Title:    "E-Commerce Operations & Financial Assistant",
				Industry: "Online Retail / Product-Based Business",
				Contributions: []string{
					"Managed online store operations, orders, and financial reporting",
					"Oversaw product listing processes, PPC coordination, and promotion tracking",
					"Ensured accurate transaction handling and prevented duplicate charges",
					"Produced weekly reports to track profit and store activity",
					"Provided responsive and professional customer service to maintain satisfaction",
				},
			},
		},
		WhyWorkWithMe: []WhyWorkWithMe{
			"I take ownership. I treat every business like my own.",
			"I communicate clearly, consistently, and proactively.",
			"I bring calm, structure, and solutions to busy operations.",
			"I'm tech-savvy and adaptable, using automation and tools to save time and money.",
		},
	}
}

// LoadProfile reads a TOML content file. Sections missing from the file keep
// the built-in copy. An empty path returns DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read content file: %w", err)
	}

	var override Profile
	if err := toml.Unmarshal(b, &override); err != nil {
		return p, fmt.Errorf("parse content file %s: %w", path, err)
	}
	p.merge(override)

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("content file %s: %w", path, err)
	}
	return p, nil
}

func (p *Profile) merge(o Profile) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&p.Name, o.Name)
	setString(&p.FullName, o.FullName)
	setString(&p.Headline, o.Headline)
	setString(&p.Tagline, o.Tagline)
	setString(&p.Location, o.Location)
	setString(&p.SchedulingURL, o.SchedulingURL)
	setString(&p.PhotoURL, o.PhotoURL)

	if o.Traits != nil {
		p.Traits = o.Traits
	}
	if o.About != nil {
		p.About = o.About
	}
	if o.Services != nil {
		p.Services = o.Services
	}
	if o.Skills != nil {
		p.Skills = o.Skills
	}
	if o.Experiences != nil {
		p.Experiences = o.Experiences
	}
	if o.WhyWorkWithMe != nil {
		p.WhyWorkWithMe = o.WhyWorkWithMe
	}
}

// Validate rejects content the page cannot render sensibly.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	for i, e := range p.Experiences {
		if e.Title == "" {
			return fmt.Errorf("experience %d: title is required", i+1)
		}
	}
	for i, s := range p.Services {
		if s.Title == "" {
			return fmt.Errorf("service %d: title is required", i+1)
		}
	}
	return nil
}
